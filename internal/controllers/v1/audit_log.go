package v1

import (
	"net/http"
	"strings"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	ez_uuid "github.com/envelope-zero/planner/internal/uuid"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuditLogQueryFilter struct {
	Action  string       `form:"action" example:"SUBMIT"` // Filter by action
	EntryID ez_uuid.UUID `form:"entry"`                   // Filter by entry ID
	Offset  uint         `form:"offset"`                  // The offset of the first record returned
	Limit   int          `form:"limit"`                   // Maximum number of records to return. Defaults to 100.
}

func RegisterAuditLogRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", GetAuditLogs)
}

// @Summary		Get audit records
// @Description	Returns the audit records of all entries, the newest first
// @Tags			Audit Logs
// @Produce		json
// @Success		200		{object}	AuditLogListResponse
// @Failure		400		{object}	AuditLogListResponse
// @Failure		500		{object}	AuditLogListResponse
// @Param			action	query		string	false	"Filter by action"
// @Param			entry	query		string	false	"Filter by entry ID"
// @Param			offset	query		uint	false	"The offset of the first record returned"
// @Param			limit	query		int		false	"Maximum number of records to return"
// @Router			/v1/audit-logs [get]
func GetAuditLogs(c *gin.Context) {
	var filter AuditLogQueryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		s := err.Error()
		c.JSON(http.StatusBadRequest, AuditLogListResponse{
			Error: &s,
		})
		return
	}

	q := models.DB.Model(&models.AuditLog{})
	if filter.Action != "" {
		q = q.Where(&models.AuditLog{Action: models.AuditAction(strings.ToUpper(filter.Action))})
	}

	if filter.EntryID != ez_uuid.Nil {
		q = q.Where(&models.AuditLog{EntryID: filter.EntryID.UUID})
	}

	q = q.Session(&gorm.Session{})

	var count int64
	err := q.Count(&count).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AuditLogListResponse{
			Error: &s,
		})
		return
	}

	limit := 100
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	logs := []models.AuditLog{}
	err = q.
		Order("created_at DESC, id").
		Offset(int(filter.Offset)).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		s := err.Error()
		c.JSON(status(err), AuditLogListResponse{
			Error: &s,
		})
		return
	}

	c.JSON(http.StatusOK, AuditLogListResponse{
		Data: logs,
		Pagination: &Pagination{
			Count:  len(logs),
			Total:  count,
			Offset: filter.Offset,
			Limit:  limit,
		},
	})
}
