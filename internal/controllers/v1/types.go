package v1

import (
	"net/http"

	ez_uuid "github.com/envelope-zero/planner/internal/uuid"
	"github.com/gin-gonic/gin"
)

type URIID struct {
	ID ez_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

type URICode struct {
	Code string `uri:"code" binding:"required" example:"DTC"` // Code of the department
}

type URIYear struct {
	Year int `uri:"year" binding:"required" example:"2025"` // Fiscal year
}

type URIAudit struct {
	URIID
	AuditID ez_uuid.UUID `uri:"auditId" binding:"required" format:"UUID"` // ID of the audit record
}

type Pagination struct {
	Count  int   `json:"count" example:"25"`  // The amount of records returned in this response
	Offset uint  `json:"offset" example:"50"` // The offset for the first record returned
	Limit  int   `json:"limit" example:"25"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total" example:"827"` // The total number of resources matching the query
}

// Response wraps the result of computed endpoints.
type Response[T any] struct {
	Error *string `json:"error" example:"the year is outside of the planning period"` // The error, if any occurred
	Data  *T      `json:"data"`                                                       // The result
}

// respond writes the result or the error.
func respond[T any](c *gin.Context, data T, err error) {
	if err != nil {
		s := err.Error()
		c.JSON(status(err), Response[T]{Error: &s})
		return
	}

	c.JSON(http.StatusOK, Response[T]{Data: &data})
}
