package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditAction is the kind of change recorded in the audit log.
type AuditAction string

const (
	AuditCreate      AuditAction = "CREATE"
	AuditUpdate      AuditAction = "UPDATE"
	AuditSubmit      AuditAction = "SUBMIT"
	AuditApprove     AuditAction = "APPROVE"
	AuditReject      AuditAction = "REJECT"
	AuditValidate    AuditAction = "VALIDATE"
	AuditDefer       AuditAction = "DEFER"
	AuditReduce      AuditAction = "REDUCE"
	AuditConsolidate AuditAction = "CONSOLIDATE"
	AuditRestore     AuditAction = "RESTORE"
)

// AuditLog records a change to an entry.
type AuditLog struct {
	DefaultModel
	EntryID   uuid.UUID      `json:"entryId" gorm:"index"`
	Action    AuditAction    `json:"action" example:"UPDATE"`
	OldValues datatypes.JSON `json:"oldValues" swaggertype:"object"`
	NewValues datatypes.JSON `json:"newValues" swaggertype:"object"`
	UserID    string         `json:"userId" example:"system"`
	Notes     string         `json:"notes"`
}

// SystemUser is recorded for changes that are not made by a named user.
const SystemUser = "system"

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode audit values: %w", err)
	}
	return datatypes.JSON(b), nil
}

// RecordAudit writes an audit log record for the entry.
func RecordAudit(db *gorm.DB, entryID uuid.UUID, action AuditAction, oldValues, newValues any, notes string) error {
	o, err := toJSON(oldValues)
	if err != nil {
		return err
	}

	n, err := toJSON(newValues)
	if err != nil {
		return err
	}

	return db.Create(&AuditLog{
		EntryID:   entryID,
		Action:    action,
		OldValues: o,
		NewValues: n,
		UserID:    SystemUser,
		Notes:     notes,
	}).Error
}

// Previous returns the snapshot of the entry before the recorded change.
func (a AuditLog) Previous() (EntrySnapshot, error) {
	var s EntrySnapshot
	if len(a.OldValues) == 0 || string(a.OldValues) == "null" {
		return s, ErrNoPreviousSnapshots
	}

	err := json.Unmarshal(a.OldValues, &s)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrNoPreviousSnapshots, err)
	}
	return s, nil
}
