package v1

import (
	"strings"

	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/envelope-zero/planner/internal/optimizer"
	"github.com/gin-gonic/gin"
)

type CutNotificationBody struct {
	Cuts []optimizer.Suggestion `json:"cuts"` // Cuts to notify about. If empty, the suggested cuts for the department are used.
}

func (co Controller) RegisterDocumentRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/limit-letter/:code", httputil.OptionsGet)
	r.GET("/limit-letter/:code", co.GetLimitLetter)
	r.OPTIONS("/cut-notification/:code", httputil.OptionsPost)
	r.POST("/cut-notification/:code", co.CreateCutNotification)
	r.OPTIONS("/justification/:id", httputil.OptionsGet)
	r.GET("/justification/:id", co.GetJustification)
	r.OPTIONS("/summary-report", httputil.OptionsGet)
	r.GET("/summary-report", co.GetSummaryReport)
	r.OPTIONS("/treasury", httputil.OptionsGet)
	r.GET("/treasury", co.GetTreasury)
}

// @Summary		Limit letter
// @Description	Generates the letter informing a department about its limit
// @Tags			Documents
// @Produce		json
// @Success		200		{object}	Response[documents.LimitLetter]
// @Failure		400		{object}	Response[documents.LimitLetter]
// @Failure		404		{object}	Response[documents.LimitLetter]
// @Failure		500		{object}	Response[documents.LimitLetter]
// @Param			code	path		string	true	"Department code"
// @Param			year	query		int		false	"Fiscal year"
// @Param			limit	query		string	false	"Limit to communicate, defaults to the budget limit of the department"
// @Router			/v1/documents/limit-letter/{code} [get]
func (co Controller) GetLimitLetter(c *gin.Context) {
	var uri URICode
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, documents.LimitLetter{}, err)
		return
	}

	y, ok := year(c)
	if !ok {
		return
	}

	limit, err := httputil.Amount(c, "limit")
	if err != nil {
		respond(c, documents.LimitLetter{}, err)
		return
	}

	letter, err := co.Documents.LimitLetter(models.DB, uri.Code, y, limit, co.Now())
	respond(c, letter, err)
}

// @Summary		Cut notification
// @Description	Generates the notification informing a department about cuts to its entries
// @Tags			Documents
// @Accept			json
// @Produce		json
// @Success		200		{object}	Response[documents.CutNotification]
// @Failure		400		{object}	Response[documents.CutNotification]
// @Failure		404		{object}	Response[documents.CutNotification]
// @Failure		500		{object}	Response[documents.CutNotification]
// @Param			code	path		string				true	"Department code"
// @Param			year	query		int					false	"Fiscal year"
// @Param			cuts	body		CutNotificationBody	false	"Cuts"
// @Router			/v1/documents/cut-notification/{code} [post]
func (co Controller) CreateCutNotification(c *gin.Context) {
	var uri URICode
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, documents.CutNotification{}, err)
		return
	}

	y, ok := year(c)
	if !ok {
		return
	}

	var data CutNotificationBody
	if c.Request.ContentLength > 0 {
		err = httputil.BindData(c, &data)
		if err != nil {
			respond(c, documents.CutNotification{}, err)
			return
		}
	}

	cuts := data.Cuts
	if len(cuts) == 0 {
		plan, err := co.Optimizer.SuggestCuts(models.DB, y, nil)
		if err != nil {
			respond(c, documents.CutNotification{}, err)
			return
		}

		for _, s := range plan.Suggestions {
			if strings.EqualFold(s.Department, uri.Code) {
				cuts = append(cuts, s)
			}
		}
	}

	n, err := co.Documents.CutNotification(models.DB, uri.Code, y, cuts, co.Now())
	respond(c, n, err)
}

// @Summary		Justification
// @Description	Generates the justification of an entry
// @Tags			Documents
// @Produce		json
// @Success		200	{object}	Response[documents.Justification]
// @Failure		400	{object}	Response[documents.Justification]
// @Failure		404	{object}	Response[documents.Justification]
// @Failure		500	{object}	Response[documents.Justification]
// @Param			id	path		URIID	true	"ignored, but needed: https://github.com/swaggo/swag/issues/1014"
// @Router			/v1/documents/justification/{id} [get]
func (co Controller) GetJustification(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, documents.Justification{}, err)
		return
	}

	j, err := co.Documents.Justification(models.DB, uri.ID.UUID)
	respond(c, j, err)
}

// @Summary		Summary report
// @Description	Generates the summary of the budget for the leadership
// @Tags			Documents
// @Produce		json
// @Success		200		{object}	Response[documents.SummaryReport]
// @Failure		400		{object}	Response[documents.SummaryReport]
// @Failure		500		{object}	Response[documents.SummaryReport]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/documents/summary-report [get]
func (co Controller) GetSummaryReport(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	r, err := co.Documents.SummaryReport(models.DB, y, co.Now())
	respond(c, r, err)
}

// @Summary		Treasury export
// @Description	Generates the export of the budget for the treasury system
// @Tags			Documents
// @Produce		json
// @Success		200		{object}	Response[documents.Treasury]
// @Failure		400		{object}	Response[documents.Treasury]
// @Failure		500		{object}	Response[documents.Treasury]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/documents/treasury [get]
func (co Controller) GetTreasury(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	t, err := co.Documents.Treasury(models.DB, y)
	respond(c, t, err)
}
