package v1

import (
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/ingest"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// getUploadedFile returns the form file with its format and handles potential errors.
func getUploadedFile(c *gin.Context) (multipart.File, ingest.Format, error) {
	formFile, err := c.FormFile("file")
	if formFile == nil {
		return nil, "", errNoFilePost
	}

	if err != nil {
		return nil, "", err
	}

	format, err := ingest.FormatFromFilename(formFile.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("%w: .xlsx, .csv", errWrongFileSuffix)
	}

	f, err := formFile.Open()
	if err != nil {
		return nil, "", err
	}

	return f, format, nil
}

func (co Controller) RegisterImportRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", httputil.OptionsPost)
	r.POST("", co.Import)
}

// @Summary		Import spreadsheet
// @Description	Creates entries from the rows of a department spreadsheet. Rows that were imported before are skipped.
// @Tags			Import
// @Accept			multipart/form-data
// @Produce		json
// @Success		200		{object}	Response[ingest.Result]
// @Failure		400		{object}	Response[ingest.Result]
// @Failure		500		{object}	Response[ingest.Result]
// @Param			file	formData	file	true	"File to import"
// @Router			/v1/import [post]
func (co Controller) Import(c *gin.Context) {
	f, format, err := getUploadedFile(c)
	if err != nil {
		respond(c, ingest.Result{}, err)
		return
	}
	defer f.Close()

	result, err := co.Ingester.Ingest(models.DB, f, format)
	if err != nil {
		respond(c, ingest.Result{}, err)
		return
	}

	err = models.RecalculateGlobalLimits(models.DB)
	if err != nil && !errors.Is(err, models.ErrResourceNotFound) {
		respond(c, ingest.Result{}, err)
		return
	}

	log.Info().Int("created", result.Created).Int("skipped", result.Skipped).Msg("imported spreadsheet")
	respond(c, result, nil)
}
