package v1

import (
	"github.com/envelope-zero/planner/internal/compliance"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/semantic"
	"github.com/gin-gonic/gin"
)

type ValidateAllResult struct {
	Summary compliance.Summary       `json:"summary"` // Aggregated result
	Results []compliance.EntryResult `json:"results"` // Result per entry
}

func (co Controller) RegisterComplianceRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/summary", httputil.OptionsGet)
	r.GET("/summary", co.GetComplianceSummary)
	r.OPTIONS("/validate", httputil.OptionsPost)
	r.POST("/validate", co.ValidateAll)
	r.OPTIONS("/validate/:id", httputil.OptionsPost)
	r.POST("/validate/:id", co.ValidateEntry)
	r.OPTIONS("/semantic/:id", httputil.OptionsPost)
	r.POST("/semantic/:id", co.ReviewEntry)
}

// @Summary		Compliance summary
// @Description	Returns the stored compliance state of all entries
// @Tags			Compliance
// @Produce		json
// @Success		200	{object}	Response[compliance.Summary]
// @Failure		500	{object}	Response[compliance.Summary]
// @Router			/v1/compliance/summary [get]
func (co Controller) GetComplianceSummary(c *gin.Context) {
	s, err := co.Compliance.Summary(models.DB)
	respond(c, s, err)
}

// @Summary		Validate all entries
// @Description	Validates all entries against the classification rules and stores the results
// @Tags			Compliance
// @Produce		json
// @Success		200	{object}	Response[ValidateAllResult]
// @Failure		500	{object}	Response[ValidateAllResult]
// @Router			/v1/compliance/validate [post]
func (co Controller) ValidateAll(c *gin.Context) {
	results, err := co.Compliance.ValidateAll(models.DB)
	if err != nil {
		respond(c, ValidateAllResult{}, err)
		return
	}

	if results == nil {
		results = []compliance.EntryResult{}
	}

	respond(c, ValidateAllResult{
		Summary: compliance.Summarize(results),
		Results: results,
	}, nil)
}

// @Summary		Validate entry
// @Description	Validates an entry against the classification rules and stores the result
// @Tags			Compliance
// @Produce		json
// @Success		200	{object}	Response[compliance.Result]
// @Failure		400	{object}	Response[compliance.Result]
// @Failure		404	{object}	Response[compliance.Result]
// @Failure		500	{object}	Response[compliance.Result]
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/compliance/validate/{id} [post]
func (co Controller) ValidateEntry(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, compliance.Result{}, err)
		return
	}

	r, err := co.Compliance.ValidateEntry(models.DB, uri.ID.UUID)
	respond(c, r, err)
}

// @Summary		Semantic review
// @Description	Reviews the classification of an entry with the semantic advisor. Advisor failures result in a neutral verdict.
// @Tags			Compliance
// @Produce		json
// @Success		200	{object}	Response[semantic.Verdict]
// @Failure		400	{object}	Response[semantic.Verdict]
// @Failure		404	{object}	Response[semantic.Verdict]
// @Failure		500	{object}	Response[semantic.Verdict]
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/compliance/semantic/{id} [post]
func (co Controller) ReviewEntry(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, semantic.Verdict{}, err)
		return
	}

	v, err := co.Semantic.ReviewEntry(c.Request.Context(), models.DB, uri.ID.UUID)
	respond(c, v, err)
}
