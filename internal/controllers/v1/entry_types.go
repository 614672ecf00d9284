package v1

import (
	"fmt"

	"github.com/envelope-zero/planner/internal/compliance"
	"github.com/envelope-zero/planner/internal/models"
	ez_uuid "github.com/envelope-zero/planner/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryEditable contains the fields of an entry that can be set through the API.
//
// The amounts are flat fields so that updates can set single years.
type EntryEditable struct {
	DepartmentID    *uuid.UUID      `json:"departmentId" example:"0b9b4a67-9a4f-4b3b-8f7b-6d3a3b5f3c11"` // ID of the department the entry belongs to
	Part            int             `json:"part" example:"27" default:"27"`                              // Part of the budget classification
	Division        int             `json:"division" example:"720"`                                      // Division of the budget classification
	Chapter         int             `json:"chapter" example:"72095"`                                     // Chapter of the budget classification
	Paragraph       int             `json:"paragraph" example:"4300"`                                    // Paragraph of the budget classification
	FinancingSource string          `json:"financingSource" example:"0"`                                 // Source of financing
	BZCode          string          `json:"bzCode" example:"16.1.2.1"`                                   // Task beneficiary code
	ProjectKind     string          `json:"projectKind" example:"IT"`                                    // Kind of project
	Name            string          `json:"name" example:"Office licenses"`                              // Name of the task
	Description     string          `json:"description" example:"Renewal of the office suite"`           // Description of the project
	Justification   string          `json:"justification" example:"Required by the operating manual"`    // Detailed justification
	InvestmentTask  string          `json:"investmentTask" example:""`                                   // Investment task, required for paragraphs 6000 and above
	Remarks         string          `json:"remarks" example:""`                                          // Free text remarks
	Stage           string          `json:"stage" example:"planowane"`                                   // Stage of execution
	ContractStatus  string          `json:"contractStatus" example:"umowa podpisana"`                    // Status of the contract
	ContractNumber  string          `json:"contractNumber" example:"DTC/12/2024"`                        // Number of the contract
	Contractor      string          `json:"contractor" example:"ACME Sp. z o.o."`                        // Who the contract is with
	Amount2025      decimal.Decimal `json:"amount2025" example:"12000" minimum:"0"`                      // Amount for 2025
	Amount2026      decimal.Decimal `json:"amount2026" example:"12000" minimum:"0"`                      // Amount for 2026
	Amount2027      decimal.Decimal `json:"amount2027" example:"12500" minimum:"0"`                      // Amount for 2027
	Amount2028      decimal.Decimal `json:"amount2028" example:"0" minimum:"0"`                          // Amount for 2028
	Amount2029      decimal.Decimal `json:"amount2029" example:"0" minimum:"0"`                          // Amount for 2029
	Priority        models.Priority `json:"priority" example:"medium" default:"medium"`                  // Priority of the entry
	Obligatory      bool            `json:"obligatory" example:"false" default:"false"`                  // If the expenditure is required by law
}

// model returns the database resource for the API representation of the editable fields
func (editable EntryEditable) model() models.Entry {
	return models.Entry{
		DepartmentID:    editable.DepartmentID,
		Part:            editable.Part,
		Division:        editable.Division,
		Chapter:         editable.Chapter,
		Paragraph:       editable.Paragraph,
		FinancingSource: editable.FinancingSource,
		BZCode:          editable.BZCode,
		ProjectKind:     editable.ProjectKind,
		Name:            editable.Name,
		Description:     editable.Description,
		Justification:   editable.Justification,
		InvestmentTask:  editable.InvestmentTask,
		Remarks:         editable.Remarks,
		Stage:           editable.Stage,
		ContractStatus:  editable.ContractStatus,
		ContractNumber:  editable.ContractNumber,
		Contractor:      editable.Contractor,
		Amounts: models.Amounts{
			Amount2025: editable.Amount2025,
			Amount2026: editable.Amount2026,
			Amount2027: editable.Amount2027,
			Amount2028: editable.Amount2028,
			Amount2029: editable.Amount2029,
		},
		Priority:   editable.Priority,
		Obligatory: editable.Obligatory,
	}
}

// validate checks the values that the database does not check.
func (editable EntryEditable) validate() error {
	if editable.Priority != "" && !editable.Priority.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidPriority, editable.Priority)
	}

	a := editable.model().Amounts
	return a.Validate()
}

type EntryLinks struct {
	Self          string `json:"self" example:"https://example.com/api/v1/entries/438cc6c0-9baf-49fd-a75a-d76bd5cab19c"`                          // The entry itself
	History       string `json:"history" example:"https://example.com/api/v1/entries/438cc6c0-9baf-49fd-a75a-d76bd5cab19c/history"`               // Audit history of the entry
	Submit        string `json:"submit" example:"https://example.com/api/v1/entries/438cc6c0-9baf-49fd-a75a-d76bd5cab19c/submit"`                 // Submit the entry for approval
	Validate      string `json:"validate" example:"https://example.com/api/v1/compliance/validate/438cc6c0-9baf-49fd-a75a-d76bd5cab19c"`          // Validate the entry
	Justification string `json:"justification" example:"https://example.com/api/v1/documents/justification/438cc6c0-9baf-49fd-a75a-d76bd5cab19c"` // Justification document of the entry
}

type Entry struct {
	models.Entry
	TotalAmount decimal.Decimal    `json:"totalAmount" example:"36500"` // Sum of all yearly amounts
	Compliance  *compliance.Result `json:"compliance,omitempty"`        // Result of the compliance check run with the last change
	Links       EntryLinks         `json:"links"`
}

// newEntry returns the API v1 representation of the resource
func newEntry(c *gin.Context, model models.Entry) Entry {
	url := c.GetString(string(models.DBContextURL))
	self := fmt.Sprintf("%s/v1/entries/%s", url, model.ID)

	return Entry{
		Entry:       model,
		TotalAmount: model.Sum(),
		Links: EntryLinks{
			Self:          self,
			History:       self + "/history",
			Submit:        self + "/submit",
			Validate:      fmt.Sprintf("%s/v1/compliance/validate/%s", url, model.ID),
			Justification: fmt.Sprintf("%s/v1/documents/justification/%s", url, model.ID),
		},
	}
}

type EntryListResponse struct {
	Data       []Entry     `json:"data"`                                                          // List of resources
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type EntryCreateResponse struct {
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []EntryResponse `json:"data"`                                                          // List of created resources
}

func (r *EntryCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	r.Data = append(r.Data, EntryResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type EntryResponse struct {
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  *Entry  `json:"data"`                                                          // The resource
}

type EntryQueryFilter struct {
	DepartmentCode string       `form:"department" filterField:"false"`   // By department code
	DepartmentID   ez_uuid.UUID `form:"departmentId" filterField:"false"` // By department ID
	Status         string       `form:"status"`                           // By status
	Priority       string       `form:"priority"`                         // By priority
	Paragraph      int          `form:"paragraph"`                        // By paragraph
	Obligatory     bool         `form:"obligatory"`                       // Is the entry obligatory?
	Search         string       `form:"search" filterField:"false"`       // By string in name, description and justification
	Offset         uint         `form:"offset" filterField:"false"`       // The offset of the first entry returned
	Limit          int          `form:"limit" filterField:"false"`        // Maximum number of entries to return
}

// model returns the database resource for the filter
func (f EntryQueryFilter) model() (models.Entry, error) {
	e := models.Entry{
		Paragraph:  f.Paragraph,
		Obligatory: f.Obligatory,
	}

	if f.Status != "" {
		s, err := models.ParseStatus(f.Status)
		if err != nil {
			return models.Entry{}, err
		}
		e.Status = s
	}

	if f.Priority != "" {
		p, err := models.ParsePriority(f.Priority)
		if err != nil {
			return models.Entry{}, err
		}
		e.Priority = p
	}

	return e, nil
}

// ReasonBody carries the reason for a decision.
type ReasonBody struct {
	Reason string `json:"reason" example:"Duplicates the DSI request"` // Why the decision was made
}

type SubmitResult struct {
	EntryID uuid.UUID     `json:"entryId"`                                                                               // ID of the entry
	Status  models.Status `json:"status" example:"draft"`                                                                // Status of the entry after the request
	Score   int           `json:"score" example:"85"`                                                                    // Compliance score of the entry
	Errors  []string      `json:"errors"`                                                                                // Compliance warnings or missing fields that prevent the submission
	Reason  string        `json:"reason,omitempty" example:"the entry cannot be submitted, required fields are missing"` // Why the submission was refused
}

type SubmitResponse struct {
	Error *string       `json:"error" example:"the entry cannot be submitted, the compliance validation failed"` // The error, if any occurred
	Data  *SubmitResult `json:"data"`                                                                            // The result of the submission
}

type SubmitAllResult struct {
	Department string         `json:"department" example:"DTC"` // Code of the department
	Submitted  []uuid.UUID    `json:"submitted"`                // IDs of the submitted entries
	Failed     []SubmitResult `json:"failed"`                   // Entries that could not be submitted
}

type AuditLogListResponse struct {
	Data       []models.AuditLog `json:"data"`                                                          // List of resources
	Error      *string           `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination       `json:"pagination"`                                                    // Pagination information
}

type Difference struct {
	Field    string `json:"field" example:"amount2025"` // Name of the field
	VersionA any    `json:"versionA" example:"12000"`   // Value in the first version
	VersionB any    `json:"versionB" example:"9000"`    // Value in the second version
}

type Comparison struct {
	EntryID     uuid.UUID          `json:"entryId"`     // ID of the entry
	VersionA    models.AuditAction `json:"versionA"`    // Action that created the first version
	VersionB    models.AuditAction `json:"versionB"`    // Action that created the second version
	Differences []Difference       `json:"differences"` // Fields that differ between the versions
}

type CompareQuery struct {
	A ez_uuid.UUID `form:"a"` // ID of the first audit record
	B ez_uuid.UUID `form:"b"` // ID of the second audit record
}
