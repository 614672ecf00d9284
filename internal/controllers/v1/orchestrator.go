package v1

import (
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

type URIStep struct {
	Step string `uri:"step" binding:"required" example:"full_analysis"` // Workflow step
}

func (co Controller) RegisterOrchestratorRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/analysis", httputil.OptionsGet)
	r.GET("/analysis", co.GetAnalysis)
	r.OPTIONS("/next-actions", httputil.OptionsGet)
	r.GET("/next-actions", co.GetNextActions)
	r.OPTIONS("/dashboard", httputil.OptionsGet)
	r.GET("/dashboard", co.GetDashboard)
	r.OPTIONS("/execute/:step", httputil.OptionsPost)
	r.POST("/execute/:step", co.ExecuteStep)
}

// @Summary		Analysis
// @Description	Determines the phase of the planning workflow, its issues and risks
// @Tags			Orchestrator
// @Produce		json
// @Success		200		{object}	Response[orchestrator.Analysis]
// @Failure		400		{object}	Response[orchestrator.Analysis]
// @Failure		500		{object}	Response[orchestrator.Analysis]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/orchestrator/analysis [get]
func (co Controller) GetAnalysis(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	a, err := co.Orchestrator.Analyze(models.DB, y, co.Now())
	respond(c, a, err)
}

// @Summary		Next actions
// @Description	Returns what should be done next, most urgent first
// @Tags			Orchestrator
// @Produce		json
// @Success		200		{object}	Response[[]orchestrator.NextAction]
// @Failure		400		{object}	Response[[]orchestrator.NextAction]
// @Failure		500		{object}	Response[[]orchestrator.NextAction]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/orchestrator/next-actions [get]
func (co Controller) GetNextActions(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	actions, err := co.Orchestrator.NextActions(models.DB, y, co.Now())
	if actions == nil {
		actions = []orchestrator.NextAction{}
	}
	respond(c, actions, err)
}

// @Summary		Dashboard
// @Description	Returns the key figures of the planning workflow
// @Tags			Orchestrator
// @Produce		json
// @Success		200		{object}	Response[orchestrator.Dashboard]
// @Failure		400		{object}	Response[orchestrator.Dashboard]
// @Failure		500		{object}	Response[orchestrator.Dashboard]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/orchestrator/dashboard [get]
func (co Controller) GetDashboard(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	d, err := co.Orchestrator.Dashboard(models.DB, y, co.Now())
	respond(c, d, err)
}

// @Summary		Execute step
// @Description	Runs a step of the planning workflow
// @Tags			Orchestrator
// @Produce		json
// @Success		200		{object}	Response[orchestrator.StepResult]
// @Failure		400		{object}	Response[orchestrator.StepResult]
// @Failure		500		{object}	Response[orchestrator.StepResult]
// @Param			step	path		string	true	"Step"	Enums(full_analysis, prepare_treasury_export, leadership_briefing)
// @Param			year	query		int		false	"Fiscal year"
// @Router			/v1/orchestrator/execute/{step} [post]
func (co Controller) ExecuteStep(c *gin.Context) {
	var uri URIStep
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, orchestrator.StepResult{}, err)
		return
	}

	y, ok := year(c)
	if !ok {
		return
	}

	r, err := co.Orchestrator.Execute(models.DB, uri.Step, y, co.Now())
	respond(c, r, err)
}
