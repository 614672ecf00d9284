package v1

import (
	"errors"
	"slices"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DepartmentStats struct {
	Code    string          `json:"code" example:"DTC"`
	Name    string          `json:"name" example:"Departament Transformacji Cyfrowej"`
	Count   int             `json:"count" example:"14"`      // Number of entries
	Total   decimal.Decimal `json:"total" example:"12000"`   // Sum of the amounts for the year
	Limit   decimal.Decimal `json:"limit" example:"15000"`   // Budget limit of the department
	Percent float64         `json:"percent" example:"11.48"` // Share of the total for the year
}

type Stats struct {
	Year           int                     `json:"year" example:"2025"`
	TotalEntries   int                     `json:"totalEntries" example:"120"`
	TotalRequested decimal.Decimal         `json:"totalRequested" example:"104500"`
	GlobalLimit    *decimal.Decimal        `json:"globalLimit" example:"100000"` // null if no limit is set for the year
	Variance       *decimal.Decimal        `json:"variance" example:"4500"`      // Total requested minus the limit, null if no limit is set
	Obligatory     decimal.Decimal         `json:"obligatory" example:"60000"`
	Discretionary  decimal.Decimal         `json:"discretionary" example:"44500"`
	ByStatus       map[models.Status]int   `json:"byStatus"`
	ByPriority     map[models.Priority]int `json:"byPriority"`
	ByDepartment   []DepartmentStats       `json:"byDepartment"`           // Largest total first
	Validated      int                     `json:"validated" example:"80"` // Number of entries with a stored compliance result
}

func (co Controller) RegisterStatsRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", GetStats)
}

// computeStats aggregates the entries for the year.
func computeStats(entries []models.Entry, year int) Stats {
	s := Stats{
		Year:           year,
		TotalEntries:   len(entries),
		TotalRequested: models.SumForYear(entries, year),
		Obligatory:     decimal.Zero,
		Discretionary:  decimal.Zero,
		ByStatus:       make(map[models.Status]int),
		ByPriority:     make(map[models.Priority]int),
		ByDepartment:   []DepartmentStats{},
	}

	departments := make(map[string]int)
	for _, e := range entries {
		amount := e.For(year)

		s.ByStatus[e.Status]++
		s.ByPriority[e.Priority]++

		if e.ComplianceValidated {
			s.Validated++
		}

		if e.Obligatory {
			s.Obligatory = s.Obligatory.Add(amount)
		} else {
			s.Discretionary = s.Discretionary.Add(amount)
		}

		if e.Department == nil {
			continue
		}

		i, ok := departments[e.Department.Code]
		if !ok {
			i = len(s.ByDepartment)
			departments[e.Department.Code] = i
			s.ByDepartment = append(s.ByDepartment, DepartmentStats{
				Code:  e.Department.Code,
				Name:  e.Department.Name,
				Total: decimal.Zero,
				Limit: e.Department.BudgetLimit,
			})
		}

		s.ByDepartment[i].Count++
		s.ByDepartment[i].Total = s.ByDepartment[i].Total.Add(amount)
	}

	for i, d := range s.ByDepartment {
		if s.TotalRequested.IsPositive() {
			s.ByDepartment[i].Percent = d.Total.Div(s.TotalRequested).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
	}

	slices.SortStableFunc(s.ByDepartment, func(a, b DepartmentStats) int {
		return b.Total.Cmp(a.Total)
	})

	return s
}

// @Summary		Statistics
// @Description	Returns the statistics for the dashboard
// @Tags			Stats
// @Produce		json
// @Success		200		{object}	Response[Stats]
// @Failure		400		{object}	Response[Stats]
// @Failure		500		{object}	Response[Stats]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/stats [get]
func GetStats(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	if !models.ValidYear(y) {
		respond(c, Stats{}, models.ErrYearOutOfRange)
		return
	}

	entries, err := models.LoadEntries(models.DB)
	if err != nil {
		respond(c, Stats{}, err)
		return
	}

	s := computeStats(entries, y)

	limit, err := models.GlobalLimitForYear(models.DB, y)
	if err == nil {
		variance := s.TotalRequested.Sub(limit.TotalLimit)
		s.GlobalLimit = &limit.TotalLimit
		s.Variance = &variance
	} else if !errors.Is(err, models.ErrResourceNotFound) {
		respond(c, Stats{}, err)
		return
	}

	respond(c, s, nil)
}
