package v1

import (
	"errors"

	"github.com/envelope-zero/planner/internal/conflict"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
)

var errInvalidResolutionStatus = errors.New("the status must be one of 'pending' or 'resolved'")

type ConflictQueryFilter struct {
	Status string `form:"status" example:"pending"` // Filter by resolution status
}

func (co Controller) RegisterConflictRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", co.GetConflicts)
	r.OPTIONS("/summary", httputil.OptionsGet)
	r.GET("/summary", co.GetConflictSummary)
	r.OPTIONS("/detect", httputil.OptionsPost)
	r.POST("/detect", co.DetectConflicts)
	r.OPTIONS("/:id/resolve", httputil.OptionsPost)
	r.POST("/:id/resolve", co.ResolveConflict)
}

// @Summary		Get conflicts
// @Description	Returns the stored conflicts, the most similar first
// @Tags			Conflicts
// @Produce		json
// @Success		200		{object}	Response[[]models.Conflict]
// @Failure		400		{object}	Response[[]models.Conflict]
// @Failure		500		{object}	Response[[]models.Conflict]
// @Param			status	query		string	false	"Filter by resolution status"
// @Router			/v1/conflicts [get]
func (co Controller) GetConflicts(c *gin.Context) {
	var filter ConflictQueryFilter
	err := c.ShouldBindQuery(&filter)
	if err != nil {
		respond(c, []models.Conflict{}, err)
		return
	}

	s := models.ResolutionStatus(filter.Status)
	if s != "" && s != models.ResolutionPending && s != models.ResolutionResolved {
		respond(c, []models.Conflict{}, errInvalidResolutionStatus)
		return
	}

	conflicts, err := co.Conflicts.List(models.DB, s)
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	respond(c, conflicts, err)
}

// @Summary		Conflict summary
// @Description	Returns the number of stored conflicts by status and type
// @Tags			Conflicts
// @Produce		json
// @Success		200	{object}	Response[conflict.Summary]
// @Failure		500	{object}	Response[conflict.Summary]
// @Router			/v1/conflicts/summary [get]
func (co Controller) GetConflictSummary(c *gin.Context) {
	s, err := co.Conflicts.Summary(models.DB)
	respond(c, s, err)
}

// @Summary		Detect conflicts
// @Description	Compares the entries of different departments and stores similar pairs as conflicts
// @Tags			Conflicts
// @Produce		json
// @Success		200		{object}	Response[[]conflict.Finding]
// @Failure		400		{object}	Response[[]conflict.Finding]
// @Failure		500		{object}	Response[[]conflict.Finding]
// @Param			year	query		int	false	"Year the savings are calculated for"
// @Router			/v1/conflicts/detect [post]
func (co Controller) DetectConflicts(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	findings, err := co.Conflicts.Detect(models.DB, y)
	if findings == nil {
		findings = []conflict.Finding{}
	}
	respond(c, findings, err)
}

// @Summary		Resolve conflict
// @Description	Resolves a conflict. Consolidation merges the other entry into the kept one and deletes it.
// @Tags			Conflicts
// @Accept			json
// @Produce		json
// @Success		200			{object}	Response[models.Conflict]
// @Failure		400			{object}	Response[models.Conflict]
// @Failure		404			{object}	Response[models.Conflict]
// @Failure		500			{object}	Response[models.Conflict]
// @Param			id			path		URIID				true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Param			resolution	body		conflict.Resolution	true	"Resolution"
// @Router			/v1/conflicts/{id}/resolve [post]
func (co Controller) ResolveConflict(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, models.Conflict{}, err)
		return
	}

	var data conflict.Resolution
	err = httputil.BindData(c, &data)
	if err != nil {
		respond(c, models.Conflict{}, err)
		return
	}

	resolved, err := co.Conflicts.Resolve(models.DB, uri.ID.UUID, data)
	if err != nil {
		respond(c, models.Conflict{}, err)
		return
	}

	// Consolidation changes the totals
	err = models.RecalculateGlobalLimits(models.DB)
	respond(c, resolved, err)
}
