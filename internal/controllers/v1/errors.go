package v1

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
)

type httpError struct {
	Error string `json:"error" example:"the specified resource ID is not a valid UUID"`
}

// status returns the appropriate status for an error
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) || errors.Is(err, sql.ErrConnDone) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) || errors.Is(err, optimizer.ErrNoGlobalLimit) {
		return http.StatusNotFound
	}

	if errors.Is(err, models.ErrEditsLocked) || errors.Is(err, models.ErrEditDeadlinePassed) {
		return http.StatusForbidden
	}

	return http.StatusBadRequest
}

// Submission errors
var (
	errScoreTooLow      = errors.New("the entry cannot be submitted, the compliance validation failed")
	errMissingFields    = errors.New("the entry cannot be submitted, required fields are missing")
	errMissingName      = errors.New("neither a task name nor a project description is set")
	errMissingParagraph = errors.New("no paragraph of the budget classification is set")
	errMissingAmounts   = errors.New("no amounts are set for the first three years")
)

// Import errors
var (
	errNoFilePost      = errors.New("you must send a file to this endpoint")
	errWrongFileSuffix = errors.New("this endpoint only supports files of the following types")
)

var errAuditQuery = errors.New("the query parameters a and b must be set to IDs of audit records")
