package v1

import (
	"fmt"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type LimitEditable struct {
	TotalLimit decimal.Decimal `json:"totalLimit" example:"100000" minimum:"0"` // Spending limit for the year
}

func (co Controller) RegisterLimitRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", OptionsLimits)
		r.GET("", GetLimits)
	}
	{
		r.OPTIONS("/:year", OptionsLimitDetail)
		r.GET("/:year", GetLimit)
		r.PUT("/:year", SetLimit)
	}
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Limits
// @Success		204
// @Router			/v1/limits [options]
func OptionsLimits(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Limits
// @Success		204
// @Param			year	path	int	true	"Fiscal year"
// @Router			/v1/limits/{year} [options]
func OptionsLimitDetail(c *gin.Context) {
	httputil.OptionsGetPut(c)
}

// @Summary		Get global limits
// @Description	Returns the global limits of all years with their current totals
// @Tags			Limits
// @Produce		json
// @Success		200	{object}	Response[[]models.GlobalLimit]
// @Failure		500	{object}	Response[[]models.GlobalLimit]
// @Router			/v1/limits [get]
func GetLimits(c *gin.Context) {
	limits := []models.GlobalLimit{}
	err := models.DB.Order("year").Find(&limits).Error
	respond(c, limits, err)
}

// @Summary		Get global limit
// @Description	Returns the global limit of a year
// @Tags			Limits
// @Produce		json
// @Success		200		{object}	Response[models.GlobalLimit]
// @Failure		400		{object}	Response[models.GlobalLimit]
// @Failure		404		{object}	Response[models.GlobalLimit]
// @Failure		500		{object}	Response[models.GlobalLimit]
// @Param			year	path		int	true	"Fiscal year"
// @Router			/v1/limits/{year} [get]
func GetLimit(c *gin.Context) {
	var uri URIYear
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, models.GlobalLimit{}, err)
		return
	}

	limit, err := models.GlobalLimitForYear(models.DB, uri.Year)
	respond(c, limit, err)
}

// @Summary		Set global limit
// @Description	Creates or updates the global limit of a year and recalculates its totals
// @Tags			Limits
// @Accept			json
// @Produce		json
// @Success		200		{object}	Response[models.GlobalLimit]
// @Failure		400		{object}	Response[models.GlobalLimit]
// @Failure		500		{object}	Response[models.GlobalLimit]
// @Param			year	path		int				true	"Fiscal year"
// @Param			limit	body		LimitEditable	true	"Limit"
// @Router			/v1/limits/{year} [put]
func SetLimit(c *gin.Context) {
	var uri URIYear
	err := c.ShouldBindUri(&uri)
	if err != nil {
		respond(c, models.GlobalLimit{}, err)
		return
	}

	if !models.ValidYear(uri.Year) {
		respond(c, models.GlobalLimit{}, fmt.Errorf("%w: %d", models.ErrYearOutOfRange, uri.Year))
		return
	}

	var data LimitEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		respond(c, models.GlobalLimit{}, err)
		return
	}

	if data.TotalLimit.IsNegative() {
		respond(c, models.GlobalLimit{}, models.ErrNegativeAmount)
		return
	}

	limit, err := models.SetGlobalLimit(models.DB, uri.Year, data.TotalLimit)
	if err == nil {
		log.Info().Int("year", uri.Year).Str("limit", data.TotalLimit.String()).Msg("set global limit")
	}

	respond(c, limit, err)
}
