package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	ez_uuid "github.com/envelope-zero/planner/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

func (co Controller) RegisterEntryRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", OptionsEntries)
		r.GET("", GetEntries)
		r.POST("", co.CreateEntries)
	}
	{
		r.OPTIONS("/:id", OptionsEntryDetail)
		r.GET("/:id", co.GetEntry)
		r.PATCH("/:id", co.UpdateEntry)
	}
	{
		r.OPTIONS("/:id/submit", OptionsEntryAction)
		r.POST("/:id/submit", co.SubmitEntry)
		r.OPTIONS("/:id/approve", OptionsEntryAction)
		r.POST("/:id/approve", ApproveEntry)
		r.OPTIONS("/:id/reject", OptionsEntryAction)
		r.POST("/:id/reject", RejectEntry)
		r.OPTIONS("/:id/restore/:auditId", OptionsEntryAction)
		r.POST("/:id/restore/:auditId", co.RestoreEntry)
	}
	{
		r.OPTIONS("/:id/history", httputil.OptionsGet)
		r.GET("/:id/history", GetEntryHistory)
		r.OPTIONS("/:id/compare", httputil.OptionsGet)
		r.GET("/:id/compare", CompareEntryVersions)
	}
}

// getEntry binds the ID from the URI and loads the entry with its
// department. If the second return value is false, an error response
// has already been written.
func getEntry(c *gin.Context) (models.Entry, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Entry{}, false
	}

	var entry models.Entry
	err = models.DB.Preload("Department").First(&entry, uri.ID.UUID).Error
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Entry{}, false
	}

	return entry, true
}

// canEdit checks the edit lock and the deadline of the department of the entry.
func canEdit(entry models.Entry, now time.Time) error {
	if entry.Department == nil {
		return nil
	}

	return entry.Department.CanEdit(now)
}

// missingFields returns the fields an entry needs before it can be submitted.
func missingFields(entry models.Entry) []string {
	missing := []string{}

	if entry.Name == "" && entry.Description == "" {
		missing = append(missing, errMissingName.Error())
	}

	if entry.Paragraph == 0 {
		missing = append(missing, errMissingParagraph.Error())
	}

	if entry.For(models.FirstYear).IsZero() && entry.For(models.FirstYear+1).IsZero() && entry.For(models.FirstYear+2).IsZero() {
		missing = append(missing, errMissingAmounts.Error())
	}

	return missing
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Entries
// @Success		204
// @Router			/v1/entries [options]
func OptionsEntries(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Entries
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id} [options]
func OptionsEntryDetail(c *gin.Context) {
	if _, ok := getEntry(c); !ok {
		return
	}

	httputil.OptionsGetPatch(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Entries
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		500	{object}	httpError
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id}/submit [options]
// @Router			/v1/entries/{id}/approve [options]
// @Router			/v1/entries/{id}/reject [options]
func OptionsEntryAction(c *gin.Context) {
	if _, ok := getEntry(c); !ok {
		return
	}

	httputil.OptionsPost(c)
}

// @Summary		Create entries
// @Description	Creates new entries. The entries are checked for compliance, the result is part of the response but not stored.
// @Tags			Entries
// @Accept			json
// @Produce		json
// @Success		201		{object}	EntryCreateResponse
// @Failure		400		{object}	EntryCreateResponse
// @Failure		403		{object}	EntryCreateResponse
// @Failure		404		{object}	EntryCreateResponse
// @Failure		500		{object}	EntryCreateResponse
// @Param			entries	body		[]EntryEditable	true	"Entries"
// @Router			/v1/entries [post]
func (co Controller) CreateEntries(c *gin.Context) {
	var entries []EntryEditable

	// Bind data and return error if not possible
	err := httputil.BindData(c, &entries)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := EntryCreateResponse{}

	for _, create := range entries {
		entry, err := co.createEntry(create)
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		result := co.Compliance.Validate(entry)
		apiResource := newEntry(c, entry)
		apiResource.Compliance = &result
		r.Data = append(r.Data, EntryResponse{Data: &apiResource})
	}

	if status == http.StatusCreated {
		err = models.RecalculateGlobalLimits(models.DB)
		if err != nil {
			status = r.appendError(err, status)
		}
	}

	c.JSON(status, r)
}

func (co Controller) createEntry(create EntryEditable) (models.Entry, error) {
	err := create.validate()
	if err != nil {
		return models.Entry{}, err
	}

	entry := create.model()
	entry.Status = models.StatusDraft

	if entry.DepartmentID != nil {
		var department models.Department
		err = models.DB.First(&department, *entry.DepartmentID).Error
		if err != nil {
			return models.Entry{}, err
		}

		err = department.CanEdit(co.Now())
		if err != nil {
			return models.Entry{}, err
		}
	}

	err = models.Transaction(models.DB, func(tx *gorm.DB) error {
		err := tx.Create(&entry).Error
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, entry.ID, models.AuditCreate, nil, entry.Snapshot(), fmt.Sprintf("Created entry %q", entry.Title()))
	})
	if err != nil {
		return models.Entry{}, err
	}

	err = models.DB.Preload("Department").First(&entry, entry.ID).Error
	if err != nil {
		return models.Entry{}, err
	}

	return entry, nil
}

// @Summary		Get entries
// @Description	Returns a list of entries
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	EntryListResponse
// @Failure		400	{object}	EntryListResponse
// @Failure		500	{object}	EntryListResponse
// @Router			/v1/entries [get]
// @Param			department		query	string	false	"Filter by department code"
// @Param			departmentId	query	string	false	"Filter by department ID"
// @Param			status			query	string	false	"Filter by status"
// @Param			priority		query	string	false	"Filter by priority"
// @Param			paragraph		query	int		false	"Filter by paragraph"
// @Param			obligatory		query	bool	false	"Is the entry obligatory?"
// @Param			search			query	string	false	"Search for this text in name, description and justification"
// @Param			offset			query	uint	false	"The offset of the first entry returned. Defaults to 0."
// @Param			limit			query	int		false	"Maximum number of entries to return. Defaults to 50."
func GetEntries(c *gin.Context) {
	var filter EntryQueryFilter

	if err := c.Bind(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, EntryListResponse{
			Error: &s,
		})
		return
	}

	queryFields, setFields := httputil.GetURLFields(c.Request.URL, filter)

	where, err := filter.model()
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EntryListResponse{
			Error: &s,
		})
		return
	}

	q := models.DB.
		Model(&models.Entry{}).
		Where(&where, queryFields...)

	if filter.DepartmentCode != "" {
		q = q.
			Joins("JOIN departments AS department_filter ON department_filter.id = entries.department_id").
			Where("department_filter.code = ?", strings.ToUpper(strings.TrimSpace(filter.DepartmentCode)))
	}

	if filter.DepartmentID != ez_uuid.Nil {
		q = q.Where("entries.department_id = ?", filter.DepartmentID.UUID)
	}

	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		q = q.Where("entries.name LIKE ? OR entries.description LIKE ? OR entries.justification LIKE ?", search, search, search)
	}

	// The query is used for the count and the page
	q = q.Session(&gorm.Session{})

	var count int64
	err = q.Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryListResponse{
			Error: &e,
		})
		return
	}

	// Default to 50 entries and set the limit
	limit := 50
	if slices.Contains(setFields, "Limit") {
		limit = filter.Limit
	}

	var entries []models.Entry
	err = q.
		Preload("Department").
		Order("entries.created_at, entries.id").
		Offset(int(filter.Offset)).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), EntryListResponse{
			Error: &s,
		})
		return
	}

	// Transform resources to their API representation
	data := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		data = append(data, newEntry(c, entry))
	}

	c.JSON(http.StatusOK, EntryListResponse{
		Data: data,
		Pagination: &Pagination{
			Count:  len(data),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}

// @Summary		Get entry
// @Description	Returns a specific entry together with the result of a compliance check
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	EntryResponse
// @Failure		400	{object}	EntryResponse
// @Failure		404	{object}	EntryResponse
// @Failure		500	{object}	EntryResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id} [get]
func (co Controller) GetEntry(c *gin.Context) {
	entry, ok := getEntry(c)
	if !ok {
		return
	}

	result := co.Compliance.Validate(entry)
	apiResource := newEntry(c, entry)
	apiResource.Compliance = &result
	c.JSON(http.StatusOK, EntryResponse{Data: &apiResource})
}

// @Summary		Update entry
// @Description	Updates an existing entry. Only values to be updated need to be specified. The entry needs to be validated again afterwards.
// @Tags			Entries
// @Accept			json
// @Produce		json
// @Success		200		{object}	EntryResponse
// @Failure		400		{object}	EntryResponse
// @Failure		403		{object}	EntryResponse
// @Failure		404		{object}	EntryResponse
// @Failure		500		{object}	EntryResponse
// @Param			id		path		URIID			true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			entry	body		EntryEditable	true	"Entry"
// @Router			/v1/entries/{id} [patch]
func (co Controller) UpdateEntry(c *gin.Context) {
	entry, ok := getEntry(c)
	if !ok {
		return
	}

	err := canEdit(entry, co.Now())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	// Get the fields that are set to be updated
	updateFields, err := httputil.GetBodyFields(c, EntryEditable{})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	// Bind the data for the patch
	var data EntryEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	err = data.validate()
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	old := entry.Snapshot()
	changed := make([]string, 0, len(updateFields))
	for _, f := range updateFields {
		changed = append(changed, fmt.Sprint(f))
	}

	err = models.Transaction(models.DB, func(tx *gorm.DB) error {
		if len(updateFields) > 0 {
			err := tx.Model(&entry).Select("", updateFields...).Updates(data.model()).Error
			if err != nil {
				return err
			}
		}

		err := tx.Model(&entry).Select("ComplianceValidated").Updates(models.Entry{ComplianceValidated: false}).Error
		if err != nil {
			return err
		}

		err = tx.Preload("Department").First(&entry, entry.ID).Error
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, entry.ID, models.AuditUpdate, old, entry.Snapshot(), "Changed: "+strings.Join(changed, ", "))
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	err = models.RecalculateGlobalLimits(models.DB)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	result := co.Compliance.Validate(entry)
	apiResource := newEntry(c, entry)
	apiResource.Compliance = &result
	c.JSON(http.StatusOK, EntryResponse{Data: &apiResource})
}

// submit validates the entry and submits it if it passes. The returned
// result is set even if the error is not nil.
func (co Controller) submit(entry models.Entry) (SubmitResult, error) {
	r := SubmitResult{EntryID: entry.ID, Status: entry.Status, Errors: []string{}}

	result, err := co.Compliance.ValidateEntry(models.DB, entry.ID)
	if err != nil {
		return r, err
	}
	r.Score = result.Score

	if !co.Compliance.CanSubmit(result) {
		r.Errors = result.Warnings
		r.Reason = errScoreTooLow.Error()
		return r, errScoreTooLow
	}

	if missing := missingFields(entry); len(missing) > 0 {
		r.Errors = missing
		r.Reason = errMissingFields.Error()
		return r, errMissingFields
	}

	old := entry.Status
	err = entry.TransitionTo(models.StatusSubmitted)
	if err != nil {
		return r, err
	}

	err = models.Transaction(models.DB, func(tx *gorm.DB) error {
		entry.ComplianceValidated = true
		err := tx.Model(&entry).Select("Status", "ComplianceValidated").Updates(&entry).Error
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, entry.ID, models.AuditSubmit,
			map[string]models.Status{"status": old},
			map[string]models.Status{"status": entry.Status},
			fmt.Sprintf("Submitted with a compliance score of %d", result.Score),
		)
	})
	if err != nil {
		return r, err
	}

	r.Status = entry.Status
	log.Info().Str("entry", entry.ID.String()).Int("score", result.Score).Msg("submitted entry")
	return r, nil
}

// @Summary		Submit entry
// @Description	Validates the entry and submits it for approval. Entries with a compliance score below the submission minimum or missing required fields are rejected.
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	SubmitResponse
// @Failure		400	{object}	SubmitResponse
// @Failure		403	{object}	SubmitResponse
// @Failure		404	{object}	SubmitResponse
// @Failure		500	{object}	SubmitResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id}/submit [post]
func (co Controller) SubmitEntry(c *gin.Context) {
	entry, ok := getEntry(c)
	if !ok {
		return
	}

	err := canEdit(entry, co.Now())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SubmitResponse{
			Error: &e,
		})
		return
	}

	r, err := co.submit(entry)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), SubmitResponse{
			Error: &e,
			Data:  &r,
		})
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{Data: &r})
}

// decide moves the entry to the target status and records the decision.
func decide(c *gin.Context, target models.Status, action models.AuditAction, remark, notes string) {
	entry, ok := getEntry(c)
	if !ok {
		return
	}

	old := entry.Status
	err := entry.TransitionTo(target)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	if remark != "" {
		entry.AppendRemark(remark)
	}

	err = models.Transaction(models.DB, func(tx *gorm.DB) error {
		err := tx.Model(&entry).Select("Status", "Remarks").Updates(&entry).Error
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, entry.ID, action,
			map[string]models.Status{"status": old},
			map[string]models.Status{"status": entry.Status},
			notes,
		)
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	apiResource := newEntry(c, entry)
	c.JSON(http.StatusOK, EntryResponse{Data: &apiResource})
}

// @Summary		Approve entry
// @Description	Approves a submitted entry
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	EntryResponse
// @Failure		400	{object}	EntryResponse
// @Failure		404	{object}	EntryResponse
// @Failure		500	{object}	EntryResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id}/approve [post]
func ApproveEntry(c *gin.Context) {
	decide(c, models.StatusApproved, models.AuditApprove, "", "Approved")
}

// @Summary		Reject entry
// @Description	Rejects a submitted entry. The reason is appended to the remarks.
// @Tags			Entries
// @Accept			json
// @Produce		json
// @Success		200		{object}	EntryResponse
// @Failure		400		{object}	EntryResponse
// @Failure		404		{object}	EntryResponse
// @Failure		500		{object}	EntryResponse
// @Param			id		path		URIID		true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			reason	body		ReasonBody	false	"Reason"
// @Router			/v1/entries/{id}/reject [post]
func RejectEntry(c *gin.Context) {
	var body ReasonBody
	if c.Request.ContentLength > 0 {
		err := httputil.BindData(c, &body)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), EntryResponse{
				Error: &e,
			})
			return
		}
	}

	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		reason = "no reason given"
	}

	decide(c, models.StatusRejected, models.AuditReject, fmt.Sprintf("[REJECTED: %s]", reason), "Rejected: "+reason)
}

// @Summary		Get entry history
// @Description	Returns the audit records of an entry, newest first
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	AuditLogListResponse
// @Failure		400	{object}	AuditLogListResponse
// @Failure		404	{object}	AuditLogListResponse
// @Failure		500	{object}	AuditLogListResponse
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/entries/{id}/history [get]
func GetEntryHistory(c *gin.Context) {
	entry, ok := getEntry(c)
	if !ok {
		return
	}

	var logs []models.AuditLog
	err := models.DB.Where(&models.AuditLog{EntryID: entry.ID}).Order("created_at DESC, id").Find(&logs).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), AuditLogListResponse{
			Error: &e,
		})
		return
	}

	c.JSON(http.StatusOK, AuditLogListResponse{
		Data: logs,
		Pagination: &Pagination{
			Count: len(logs),
			Total: int64(len(logs)),
			Limit: len(logs),
		},
	})
}

// @Summary		Restore entry version
// @Description	Restores the values an entry had before the change recorded in the audit record. Restored entries need to be reviewed again.
// @Tags			Entries
// @Produce		json
// @Success		200		{object}	EntryResponse
// @Failure		400		{object}	EntryResponse
// @Failure		403		{object}	EntryResponse
// @Failure		404		{object}	EntryResponse
// @Failure		500		{object}	EntryResponse
// @Param			id		path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			auditId	path		string	true	"ID of the audit record"
// @Router			/v1/entries/{id}/restore/{auditId} [post]
func (co Controller) RestoreEntry(c *gin.Context) {
	var uri URIAudit
	err := c.ShouldBindUri(&uri)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	entry, ok := getEntry(c)
	if !ok {
		return
	}

	err = canEdit(entry, co.Now())
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	var record models.AuditLog
	err = models.DB.Where(&models.AuditLog{EntryID: entry.ID}).First(&record, uri.AuditID.UUID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	snapshot, err := record.Previous()
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	current := entry.Snapshot()
	entry.Restore(snapshot)
	entry.ComplianceValidated = false
	if entry.Status != models.StatusDraft {
		err = entry.TransitionTo(models.StatusNeedsRevision)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), EntryResponse{
				Error: &e,
			})
			return
		}
	}

	err = models.Transaction(models.DB, func(tx *gorm.DB) error {
		err := tx.Model(&entry).Select(
			"Name", "Description", "Justification", "InvestmentTask", "Remarks", "Paragraph", "BZCode",
			"Obligatory", "Priority", "Status", "ComplianceValidated",
			"Amount2025", "Amount2026", "Amount2027", "Amount2028", "Amount2029",
		).Updates(&entry).Error
		if err != nil {
			return err
		}

		return models.RecordAudit(tx, entry.ID, models.AuditRestore, current, entry.Snapshot(),
			fmt.Sprintf("Restored the version from before %s", record.CreatedAt.Format(time.RFC3339)))
	})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	err = models.RecalculateGlobalLimits(models.DB)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), EntryResponse{
			Error: &e,
		})
		return
	}

	apiResource := newEntry(c, entry)
	c.JSON(http.StatusOK, EntryResponse{Data: &apiResource})
}

// values decodes the values recorded after the change.
func values(record models.AuditLog) map[string]any {
	v := map[string]any{}
	if len(record.NewValues) == 0 {
		return v
	}

	// Written by RecordAudit, a decoding failure means there are no values
	_ = json.Unmarshal(record.NewValues, &v)
	return v
}

// @Summary		Compare entry versions
// @Description	Compares the values recorded by two audit records of an entry
// @Tags			Entries
// @Produce		json
// @Success		200	{object}	Response[Comparison]
// @Failure		400	{object}	Response[Comparison]
// @Failure		404	{object}	Response[Comparison]
// @Failure		500	{object}	Response[Comparison]
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			a	query		string	true	"ID of the first audit record"
// @Param			b	query		string	true	"ID of the second audit record"
// @Router			/v1/entries/{id}/compare [get]
func CompareEntryVersions(c *gin.Context) {
	var query CompareQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respond(c, Comparison{}, err)
		return
	}

	if query.A == ez_uuid.Nil || query.B == ez_uuid.Nil {
		respond(c, Comparison{}, errAuditQuery)
		return
	}

	entry, ok := getEntry(c)
	if !ok {
		return
	}

	var a, b models.AuditLog
	err := models.DB.Where(&models.AuditLog{EntryID: entry.ID}).First(&a, query.A.UUID).Error
	if err != nil {
		respond(c, Comparison{}, err)
		return
	}

	err = models.DB.Where(&models.AuditLog{EntryID: entry.ID}).First(&b, query.B.UUID).Error
	if err != nil {
		respond(c, Comparison{}, err)
		return
	}

	va, vb := values(a), values(b)
	fields := maps.Keys(va)
	for k := range vb {
		if _, ok := va[k]; !ok {
			fields = append(fields, k)
		}
	}
	slices.Sort(fields)

	differences := []Difference{}
	for _, f := range fields {
		if !reflect.DeepEqual(va[f], vb[f]) {
			differences = append(differences, Difference{Field: f, VersionA: va[f], VersionB: vb[f]})
		}
	}

	respond(c, Comparison{
		EntryID:     entry.ID,
		VersionA:    a.Action,
		VersionB:    b.Action,
		Differences: differences,
	}, nil)
}
