package v1

import (
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/gin-gonic/gin"
)

func (co Controller) RegisterOptimizationRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/gap-analysis", httputil.OptionsGet)
	r.GET("/gap-analysis", co.GetGapAnalysis)
	r.OPTIONS("/suggest-cuts", httputil.OptionsGet)
	r.GET("/suggest-cuts", co.GetCutSuggestions)
	r.OPTIONS("/apply/:id", httputil.OptionsPost)
	r.POST("/apply/:id", co.ApplyCut)
	r.OPTIONS("/department-allocation", httputil.OptionsGet)
	r.GET("/department-allocation", co.GetDepartmentAllocation)
}

// @Summary		Gap analysis
// @Description	Compares the planned spending of a year with its global limit
// @Tags			Optimization
// @Produce		json
// @Success		200		{object}	Response[optimizer.GapAnalysis]
// @Failure		400		{object}	Response[optimizer.GapAnalysis]
// @Failure		404		{object}	Response[optimizer.GapAnalysis]
// @Failure		500		{object}	Response[optimizer.GapAnalysis]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/optimization/gap-analysis [get]
func (co Controller) GetGapAnalysis(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	gap, err := co.Optimizer.AnalyzeGap(models.DB, y)
	respond(c, gap, err)
}

// @Summary		Suggest cuts
// @Description	Proposes deferrals and reductions that close the gap. Obligatory entries are never proposed.
// @Tags			Optimization
// @Produce		json
// @Success		200		{object}	Response[optimizer.CutPlan]
// @Failure		400		{object}	Response[optimizer.CutPlan]
// @Failure		404		{object}	Response[optimizer.CutPlan]
// @Failure		500		{object}	Response[optimizer.CutPlan]
// @Param			year	query		int		false	"Fiscal year"
// @Param			target	query		string	false	"Amount to cut, defaults to the variance"
// @Router			/v1/optimization/suggest-cuts [get]
func (co Controller) GetCutSuggestions(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	target, err := httputil.Amount(c, "target")
	if err != nil {
		respond(c, optimizer.CutPlan{}, err)
		return
	}

	plan, err := co.Optimizer.SuggestCuts(models.DB, y, target)
	respond(c, plan, err)
}

// @Summary		Apply cut
// @Description	Defers or reduces the amount of an entry for a year
// @Tags			Optimization
// @Accept			json
// @Produce		json
// @Success		200		{object}	Response[optimizer.ApplyResult]
// @Failure		400		{object}	Response[optimizer.ApplyResult]
// @Failure		404		{object}	Response[optimizer.ApplyResult]
// @Failure		500		{object}	Response[optimizer.ApplyResult]
// @Param			id		path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			action	body		optimizer.Action	true	"Action"
// @Router			/v1/optimization/apply/{id} [post]
func (co Controller) ApplyCut(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, optimizer.ApplyResult{}, err)
		return
	}

	var data optimizer.Action
	err = httputil.BindData(c, &data)
	if err != nil {
		respond(c, optimizer.ApplyResult{}, err)
		return
	}

	result, err := co.Optimizer.Apply(models.DB, uri.ID.UUID, data)
	if err != nil {
		respond(c, optimizer.ApplyResult{}, err)
		return
	}

	err = models.RecalculateGlobalLimits(models.DB)
	respond(c, result, err)
}

// @Summary		Department allocation
// @Description	Compares the planned spending of every department with its budget limit
// @Tags			Optimization
// @Produce		json
// @Success		200		{object}	Response[[]optimizer.DepartmentAllocation]
// @Failure		400		{object}	Response[[]optimizer.DepartmentAllocation]
// @Failure		500		{object}	Response[[]optimizer.DepartmentAllocation]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/optimization/department-allocation [get]
func (co Controller) GetDepartmentAllocation(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	allocations, err := co.Optimizer.DepartmentAllocation(models.DB, y)
	if allocations == nil {
		allocations = []optimizer.DepartmentAllocation{}
	}
	respond(c, allocations, err)
}
