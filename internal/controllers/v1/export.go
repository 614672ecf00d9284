package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/envelope-zero/planner/internal/documents"
	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

func (co Controller) RegisterExportRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/entries", httputil.OptionsGet)
	r.GET("/entries", co.ExportEntries)
	r.OPTIONS("/summary", httputil.OptionsGet)
	r.GET("/summary", co.ExportSummary)
}

// sendWorkbook writes the workbook as an attachment.
func sendWorkbook(c *gin.Context, f *excelize.File, name string) {
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", documents.ContentType)
	c.Status(http.StatusOK)

	err := f.Write(c.Writer)
	if err != nil {
		log.Error().Str("request-id", requestid.Get(c)).Err(err).Msg("could not write workbook")
	}
}

// @Summary		Export entries
// @Description	Exports the entries, optionally of a single department, as a spreadsheet
// @Tags			Export
// @Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success		200
// @Failure		400			{object}	httpError
// @Failure		404			{object}	httpError
// @Failure		500			{object}	httpError
// @Param			year		query		int		false	"Fiscal year"
// @Param			department	query		string	false	"Department code"
// @Router			/v1/export/entries [get]
func (co Controller) ExportEntries(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	code := c.Query("department")
	f, err := co.Documents.EntriesWorkbook(models.DB, y, code)
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	name := fmt.Sprintf("budget_%d.xlsx", y)
	if code != "" {
		name = fmt.Sprintf("budget_%s_%d.xlsx", strings.ToUpper(code), y)
	}

	sendWorkbook(c, f, name)
}

// @Summary		Export summary
// @Description	Exports the summary report as a spreadsheet
// @Tags			Export
// @Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success		200
// @Failure		400		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			year	query		int	false	"Fiscal year"
// @Router			/v1/export/summary [get]
func (co Controller) ExportSummary(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	f, err := co.Documents.SummaryWorkbook(models.DB, y, co.Now())
	if err != nil {
		c.JSON(status(err), httpError{Error: err.Error()})
		return
	}

	sendWorkbook(c, f, fmt.Sprintf("summary_%d.xlsx", y))
}
