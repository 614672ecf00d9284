package healthz

import (
	"net/http"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", Options)
	r.GET("", Get)
}

type Response struct {
	Status   string  `json:"status" example:"healthy"`
	Database string  `json:"database" example:"connected"`
	Error    *string `json:"error" example:"sql: database is closed"` // The error, if any occurred
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			General
//	@Success		204
//	@Router			/healthz [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

// Get returns the health of the service
//
//	@Summary		Get health
//	@Description	Returns the application health and, if not healthy, an error
//	@Tags			General
//	@Produce		json
//	@Success		200	{object}	Response
//	@Failure		500	{object}	Response
//	@Router			/healthz [get]
func Get(c *gin.Context) {
	sqlDB, err := models.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}

	if err != nil {
		s := err.Error()
		c.JSON(http.StatusInternalServerError, Response{
			Status:   "unhealthy",
			Database: "unreachable",
			Error:    &s,
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Status:   "healthy",
		Database: "connected",
	})
}
