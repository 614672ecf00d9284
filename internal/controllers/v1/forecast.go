package v1

import (
	"github.com/envelope-zero/planner/internal/forecast"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultForecastYears = 5

// AllocationLimits maps fiscal years to their spending limit.
type AllocationLimits map[int]decimal.Decimal

func (co Controller) RegisterForecastRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsGet)
	r.GET("", co.GetForecast)
	r.OPTIONS("/anomalies", httputil.OptionsGet)
	r.GET("/anomalies", co.GetAnomalies)
	r.OPTIONS("/allocation", httputil.OptionsPost)
	r.POST("/allocation", co.OptimizeAllocation)
}

// @Summary		Forecast
// @Description	Projects the spending of the base year into the following years
// @Tags			Forecast
// @Produce		json
// @Success		200		{object}	Response[forecast.Result]
// @Failure		400		{object}	Response[forecast.Result]
// @Failure		500		{object}	Response[forecast.Result]
// @Param			year	query		int	false	"Base year"
// @Param			years	query		int	false	"Number of years to forecast, between 1 and 10"
// @Router			/v1/forecast [get]
func (co Controller) GetForecast(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	years, err := httputil.Int(c, "years", defaultForecastYears)
	if err != nil {
		respond(c, forecast.Result{}, forecast.ErrInvalidHorizon)
		return
	}

	r, err := co.Forecaster.Forecast(models.DB, y, years)
	respond(c, r, err)
}

// @Summary		Anomalies
// @Description	Finds entries with outlier amounts, missing justifications and classification mismatches
// @Tags			Forecast
// @Produce		json
// @Success		200		{object}	Response[[]forecast.Anomaly]
// @Failure		400		{object}	Response[[]forecast.Anomaly]
// @Failure		500		{object}	Response[[]forecast.Anomaly]
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/forecast/anomalies [get]
func (co Controller) GetAnomalies(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	anomalies, err := co.Forecaster.Anomalies(models.DB, y)
	if anomalies == nil {
		anomalies = []forecast.Anomaly{}
	}
	respond(c, anomalies, err)
}

// @Summary		Optimize allocation
// @Description	Spreads the entries over the years with the limits. Without a body, the configured limits are used.
// @Tags			Forecast
// @Accept			json
// @Produce		json
// @Success		200		{object}	Response[forecast.Allocation]
// @Failure		400		{object}	Response[forecast.Allocation]
// @Failure		500		{object}	Response[forecast.Allocation]
// @Param			limits	body		AllocationLimits	false	"Limit per year"
// @Router			/v1/forecast/allocation [post]
func (co Controller) OptimizeAllocation(c *gin.Context) {
	var limits AllocationLimits
	if c.Request.ContentLength > 0 {
		err := httputil.BindData(c, &limits)
		if err != nil {
			respond(c, forecast.Allocation{}, err)
			return
		}
	}

	a, err := co.Forecaster.OptimizeAllocation(models.DB, limits)
	respond(c, a, err)
}
