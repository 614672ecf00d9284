package v1

import (
	"net/http"

	"github.com/envelope-zero/planner/internal/httputil"
	"github.com/envelope-zero/planner/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

func (co Controller) RegisterDepartmentRoutes(r *gin.RouterGroup) {
	{
		r.OPTIONS("", OptionsDepartments)
		r.GET("", GetDepartments)
		r.POST("", CreateDepartments)
	}
	{
		r.OPTIONS("/:code", OptionsDepartmentDetail)
		r.GET("/:code", GetDepartment)
		r.PATCH("/:code", UpdateDepartment)
	}
	{
		r.OPTIONS("/:code/entries", httputil.OptionsGet)
		r.GET("/:code/entries", GetDepartmentEntries)
		r.OPTIONS("/:code/can-edit", httputil.OptionsGet)
		r.GET("/:code/can-edit", co.GetDepartmentEditStatus)
		r.OPTIONS("/:code/lock", httputil.OptionsPost)
		r.POST("/:code/lock", LockDepartment)
		r.OPTIONS("/:code/unlock", httputil.OptionsPost)
		r.POST("/:code/unlock", UnlockDepartment)
		r.OPTIONS("/:code/submit", httputil.OptionsPost)
		r.POST("/:code/submit", co.SubmitDepartment)
	}
}

// getDepartment binds the code from the URI and loads the department.
// If the second return value is false, an error response has already
// been written.
func getDepartment(c *gin.Context) (models.Department, bool) {
	var uri URICode
	err := c.ShouldBindUri(&uri)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Department{}, false
	}

	department, err := models.DepartmentByCode(models.DB, uri.Code)
	if err != nil {
		c.JSON(status(err), httpError{
			Error: err.Error(),
		})
		return models.Department{}, false
	}

	return department, true
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Departments
// @Success		204
// @Router			/v1/departments [options]
func OptionsDepartments(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Departments
// @Success		204
// @Failure		404		{object}	httpError
// @Failure		500		{object}	httpError
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code} [options]
func OptionsDepartmentDetail(c *gin.Context) {
	if _, ok := getDepartment(c); !ok {
		return
	}

	httputil.OptionsGetPatch(c)
}

// @Summary		Get departments
// @Description	Returns all departments, ordered by code
// @Tags			Departments
// @Produce		json
// @Success		200	{object}	DepartmentListResponse
// @Failure		500	{object}	DepartmentListResponse
// @Router			/v1/departments [get]
func GetDepartments(c *gin.Context) {
	var departments []models.Department
	err := models.DB.Order("code").Find(&departments).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentListResponse{
			Error: &e,
		})
		return
	}

	data := make([]Department, 0, len(departments))
	for _, d := range departments {
		data = append(data, newDepartment(c, d))
	}

	c.JSON(http.StatusOK, DepartmentListResponse{Data: data})
}

// @Summary		Create departments
// @Description	Creates new departments
// @Tags			Departments
// @Accept			json
// @Produce		json
// @Success		201			{object}	DepartmentCreateResponse
// @Failure		400			{object}	DepartmentCreateResponse
// @Failure		500			{object}	DepartmentCreateResponse
// @Param			departments	body		[]DepartmentCreate	true	"Departments"
// @Router			/v1/departments [post]
func CreateDepartments(c *gin.Context) {
	var departments []DepartmentCreate

	err := httputil.BindData(c, &departments)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentCreateResponse{
			Error: &e,
		})
		return
	}

	// The final http status. Will be modified when errors occur
	status := http.StatusCreated
	r := DepartmentCreateResponse{}

	for _, create := range departments {
		department := create.model()
		department.Code = create.Code

		err = models.DB.Create(&department).Error
		if err != nil {
			status = r.appendError(err, status)
			continue
		}

		apiResource := newDepartment(c, department)
		r.Data = append(r.Data, DepartmentResponse{Data: &apiResource})
	}

	c.JSON(status, r)
}

// @Summary		Get department
// @Description	Returns a specific department
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	DepartmentResponse
// @Failure		404		{object}	DepartmentResponse
// @Failure		500		{object}	DepartmentResponse
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code} [get]
func GetDepartment(c *gin.Context) {
	department, ok := getDepartment(c)
	if !ok {
		return
	}

	apiResource := newDepartment(c, department)
	c.JSON(http.StatusOK, DepartmentResponse{Data: &apiResource})
}

// @Summary		Update department
// @Description	Updates a department. Only values to be updated need to be specified. This sets the limit, the edit deadline and the edit lock.
// @Tags			Departments
// @Accept			json
// @Produce		json
// @Success		200			{object}	DepartmentResponse
// @Failure		400			{object}	DepartmentResponse
// @Failure		404			{object}	DepartmentResponse
// @Failure		500			{object}	DepartmentResponse
// @Param			code		path		string				true	"Code of the department"
// @Param			department	body		DepartmentEditable	true	"Department"
// @Router			/v1/departments/{code} [patch]
func UpdateDepartment(c *gin.Context) {
	department, ok := getDepartment(c)
	if !ok {
		return
	}

	// Get the fields that are set to be updated
	updateFields, err := httputil.GetBodyFields(c, DepartmentEditable{})
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentResponse{
			Error: &e,
		})
		return
	}

	// Bind the data for the patch
	var data DepartmentEditable
	err = httputil.BindData(c, &data)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentResponse{
			Error: &e,
		})
		return
	}

	if data.BudgetLimit.IsNegative() {
		e := models.ErrNegativeAmount.Error()
		c.JSON(http.StatusBadRequest, DepartmentResponse{
			Error: &e,
		})
		return
	}

	if len(updateFields) > 0 {
		err = models.DB.Model(&department).Select("", updateFields...).Updates(data.model()).Error
		if err != nil {
			e := err.Error()
			c.JSON(status(err), DepartmentResponse{
				Error: &e,
			})
			return
		}
	}

	if slices.Contains(updateFields, any("EditLocked")) {
		log.Info().Str("department", department.Code).Bool("locked", data.EditLocked).Msg("changed edit lock")
	}

	err = models.DB.First(&department, department.ID).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentResponse{
			Error: &e,
		})
		return
	}

	apiResource := newDepartment(c, department)
	c.JSON(http.StatusOK, DepartmentResponse{Data: &apiResource})
}

func setLock(c *gin.Context, locked bool) {
	department, ok := getDepartment(c)
	if !ok {
		return
	}

	department.EditLocked = locked
	err := models.DB.Model(&department).Select("EditLocked").Updates(&department).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), DepartmentResponse{
			Error: &e,
		})
		return
	}

	log.Info().Str("department", department.Code).Bool("locked", locked).Msg("changed edit lock")

	apiResource := newDepartment(c, department)
	c.JSON(http.StatusOK, DepartmentResponse{Data: &apiResource})
}

// @Summary		Lock department
// @Description	Locks the entries of a department against changes
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	DepartmentResponse
// @Failure		404		{object}	DepartmentResponse
// @Failure		500		{object}	DepartmentResponse
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code}/lock [post]
func LockDepartment(c *gin.Context) {
	setLock(c, true)
}

// @Summary		Unlock department
// @Description	Allows changes to the entries of a department again. The edit deadline still applies.
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	DepartmentResponse
// @Failure		404		{object}	DepartmentResponse
// @Failure		500		{object}	DepartmentResponse
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code}/unlock [post]
func UnlockDepartment(c *gin.Context) {
	setLock(c, false)
}

// @Summary		Get department entries
// @Description	Returns the entries of a department with its totals for a year
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	Response[DepartmentEntries]
// @Failure		400		{object}	Response[DepartmentEntries]
// @Failure		404		{object}	Response[DepartmentEntries]
// @Failure		500		{object}	Response[DepartmentEntries]
// @Param			code	path		string	true	"Code of the department"
// @Param			year	query		int		false	"Fiscal year, defaults to 2025"
// @Router			/v1/departments/{code}/entries [get]
func GetDepartmentEntries(c *gin.Context) {
	y, ok := year(c)
	if !ok {
		return
	}

	department, ok := getDepartment(c)
	if !ok {
		return
	}

	if !models.ValidYear(y) {
		respond(c, DepartmentEntries{}, models.ErrYearOutOfRange)
		return
	}

	entries, err := models.LoadEntries(models.DB, &models.Entry{DepartmentID: &department.ID})
	if err != nil {
		respond(c, DepartmentEntries{}, err)
		return
	}

	total := models.SumForYear(entries, y)
	data := make([]Entry, 0, len(entries))
	for _, e := range entries {
		data = append(data, newEntry(c, e))
	}

	respond(c, DepartmentEntries{
		Department:     newDepartment(c, department),
		Year:           y,
		TotalRequested: total,
		Variance:       total.Sub(department.BudgetLimit),
		IsOverLimit:    total.GreaterThan(department.BudgetLimit),
		Entries:        data,
	}, nil)
}

// @Summary		Get edit status
// @Description	Returns if the entries of a department can be edited and why not
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	Response[EditStatus]
// @Failure		404		{object}	Response[EditStatus]
// @Failure		500		{object}	Response[EditStatus]
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code}/can-edit [get]
func (co Controller) GetDepartmentEditStatus(c *gin.Context) {
	department, ok := getDepartment(c)
	if !ok {
		return
	}

	s := EditStatus{
		CanEdit:  true,
		Locked:   department.EditLocked,
		Deadline: department.EditDeadline,
	}

	if err := department.CanEdit(co.Now()); err != nil {
		s.CanEdit = false
		s.Reason = err.Error()
	}

	respond(c, s, nil)
}

// @Summary		Submit department entries
// @Description	Validates all draft entries of a department and submits those that pass
// @Tags			Departments
// @Produce		json
// @Success		200		{object}	Response[SubmitAllResult]
// @Failure		403		{object}	Response[SubmitAllResult]
// @Failure		404		{object}	Response[SubmitAllResult]
// @Failure		500		{object}	Response[SubmitAllResult]
// @Param			code	path		string	true	"Code of the department"
// @Router			/v1/departments/{code}/submit [post]
func (co Controller) SubmitDepartment(c *gin.Context) {
	department, ok := getDepartment(c)
	if !ok {
		return
	}

	err := department.CanEdit(co.Now())
	if err != nil {
		respond(c, SubmitAllResult{}, err)
		return
	}

	entries, err := models.LoadEntries(models.DB, &models.Entry{DepartmentID: &department.ID, Status: models.StatusDraft})
	if err != nil {
		respond(c, SubmitAllResult{}, err)
		return
	}

	r := SubmitAllResult{
		Department: department.Code,
		Submitted:  []uuid.UUID{},
		Failed:     []SubmitResult{},
	}

	for _, e := range entries {
		result, err := co.submit(e)
		if err != nil {
			// Store and database failures abort the request, entries that
			// do not pass are reported
			if status(err) == http.StatusInternalServerError {
				respond(c, SubmitAllResult{}, err)
				return
			}

			result.Reason = err.Error()
			r.Failed = append(r.Failed, result)
			continue
		}

		r.Submitted = append(r.Submitted, e.ID)
	}

	log.Info().Str("department", department.Code).Int("submitted", len(r.Submitted)).Int("failed", len(r.Failed)).Msg("submitted department entries")
	respond(c, r, nil)
}
