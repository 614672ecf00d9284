package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")
)

var (
	ErrDepartmentCodeNotUnique   = errors.New("the department code must be unique")
	ErrGlobalLimitYearNotUnique  = errors.New("there already is a global limit for this year")
	ErrConflictPairNotUnique     = errors.New("a conflict for this pair of entries already exists")
	ErrDepartmentDoesNotExist    = errors.New("the referenced department does not exist")
	ErrYearOutOfRange            = errors.New("the year is outside of the planning period")
	ErrNegativeAmount            = errors.New("amounts must not be negative")
	ErrInvalidPriority           = errors.New("the priority is not valid")
	ErrInvalidStatus             = errors.New("the status is not valid")
	ErrStatusTransitionForbidden = errors.New("this status change is not allowed")
	ErrConflictEntriesIdentical  = errors.New("a conflict needs two different entries")
)

// Edit gate errors. Handlers map these to 403.
var (
	ErrEditsLocked         = errors.New("edits are locked for this department")
	ErrEditDeadlinePassed  = errors.New("the edit deadline for this department has passed")
	ErrNoPreviousSnapshots = errors.New("the audit record has no previous values to restore")
)
