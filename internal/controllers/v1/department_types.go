package v1

import (
	"fmt"
	"time"

	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DepartmentEditable struct {
	Name         string          `json:"name" example:"Departament Transformacji Cyfrowej"`          // Name of the department
	DirectorName string          `json:"directorName" example:"Jan Kowalski"`                        // Name of the director
	BudgetLimit  decimal.Decimal `json:"budgetLimit" example:"15000" minimum:"0"`                    // Limit assigned to the department
	EditLocked   bool            `json:"editLocked" example:"false" default:"false"`                 // If entries of the department can not be changed
	EditDeadline *time.Time      `json:"editDeadline" example:"2024-08-31T23:59:59Z" default:"null"` // Entries can not be changed after this time
}

// model returns the database resource for the API representation of the editable fields
func (editable DepartmentEditable) model() models.Department {
	return models.Department{
		Name:         editable.Name,
		DirectorName: editable.DirectorName,
		BudgetLimit:  editable.BudgetLimit,
		EditLocked:   editable.EditLocked,
		EditDeadline: editable.EditDeadline,
	}
}

type DepartmentCreate struct {
	Code string `json:"code" example:"DTC"` // Unique code of the department
	DepartmentEditable
}

type DepartmentLinks struct {
	Self        string `json:"self" example:"https://example.com/api/v1/departments/DTC"`                           // The department itself
	Entries     string `json:"entries" example:"https://example.com/api/v1/departments/DTC/entries"`                // Entries of the department
	CanEdit     string `json:"canEdit" example:"https://example.com/api/v1/departments/DTC/can-edit"`               // If entries can be edited
	Submit      string `json:"submit" example:"https://example.com/api/v1/departments/DTC/submit"`                  // Submit all draft entries
	LimitLetter string `json:"limitLetter" example:"https://example.com/api/v1/documents/limit-letter/DTC"`         // Letter informing the department about its limit
	Export      string `json:"export" example:"https://example.com/api/v1/export/entries?department=DTC&year=2025"` // Spreadsheet of the entries
}

type Department struct {
	models.Department
	Links DepartmentLinks `json:"links"`
}

// newDepartment returns the API v1 representation of the resource
func newDepartment(c *gin.Context, model models.Department) Department {
	url := c.GetString(string(models.DBContextURL))
	self := fmt.Sprintf("%s/v1/departments/%s", url, model.Code)

	return Department{
		Department: model,
		Links: DepartmentLinks{
			Self:        self,
			Entries:     self + "/entries",
			CanEdit:     self + "/can-edit",
			Submit:      self + "/submit",
			LimitLetter: fmt.Sprintf("%s/v1/documents/limit-letter/%s", url, model.Code),
			Export:      fmt.Sprintf("%s/v1/export/entries?department=%s", url, model.Code),
		},
	}
}

type DepartmentListResponse struct {
	Data  []Department `json:"data"`                                               // List of resources
	Error *string      `json:"error" example:"the department code must be unique"` // The error, if any occurred
}

type DepartmentCreateResponse struct {
	Error *string              `json:"error" example:"the department code must be unique"` // The error, if any occurred
	Data  []DepartmentResponse `json:"data"`                                               // List of created resources
}

func (r *DepartmentCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	r.Data = append(r.Data, DepartmentResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type DepartmentResponse struct {
	Error *string     `json:"error" example:"there is no department matching your query"` // The error, if any occurred
	Data  *Department `json:"data"`                                                       // The resource
}

type DepartmentEntries struct {
	Department     Department      `json:"department"`                     // The department
	Year           int             `json:"year" example:"2025"`            // Year the totals are calculated for
	TotalRequested decimal.Decimal `json:"totalRequested" example:"17000"` // Sum of the amounts of all entries for the year
	Variance       decimal.Decimal `json:"variance" example:"2000"`        // Total requested minus the budget limit
	IsOverLimit    bool            `json:"isOverLimit" example:"true"`     // If more is requested than the limit allows
	Entries        []Entry         `json:"entries"`                        // Entries of the department
}

type EditStatus struct {
	CanEdit  bool       `json:"canEdit" example:"false"`                               // If entries can be edited now
	Reason   string     `json:"reason" example:"edits are locked for this department"` // Why entries cannot be edited
	Locked   bool       `json:"locked" example:"true"`                                 // If the department is locked
	Deadline *time.Time `json:"deadline" example:"2024-08-31T23:59:59Z"`               // The edit deadline, if any
}
