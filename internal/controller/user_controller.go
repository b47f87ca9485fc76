package controller

import (
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	StudentService *service.StudentService
	AdminService   *service.AdminService
}

func NewUserController(students *service.StudentService, admins *service.AdminService) *UserController {
	return &UserController{StudentService: students, AdminService: admins}
}

// GetMe godoc
// @Summary Current student profile
// @Tags Students
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/v1/students/me [get]
func (c *UserController) GetMe(ctx *gin.Context) {
	id, ok := studentID(ctx)
	if !ok {
		return
	}
	student, err := c.StudentService.GetStudent(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UpdateMe godoc
// @Summary Update the current student's profile
// @Tags Students
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/v1/students/me [put]
func (c *UserController) UpdateMe(ctx *gin.Context) {
	id, ok := studentID(ctx)
	if !ok {
		return
	}
	var req service.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	student, err := c.StudentService.UpdateStudent(id, req, false)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UploadMyPicture godoc
// @Summary Upload the current student's profile picture
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Image"
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/v1/students/me/picture [post]
func (c *UserController) UploadMyPicture(ctx *gin.Context) {
	id, ok := studentID(ctx)
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	student, err := c.StudentService.UpdateProfilePicture(ctx.Request.Context(), id, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// ListStudents godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security ApiKeyAuth
// @Param search query string false "Name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response{data=object}
// @Router /api/v1/students [get]
func (c *UserController) ListStudents(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	students, total, err := c.StudentService.ListStudents(ctx.Query("search"), page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResult(students, total, page, limit))
}

// GetStudent godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Student ID"
// @Success 200 {object} util.Response{data=model.Student}
// @Failure 404 {object} util.Response
// @Router /api/v1/students/{id} [get]
func (c *UserController) GetStudent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	student, err := c.StudentService.GetStudent(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// UpdateStudent godoc
// @Summary Update a student, subscription included
// @Tags Students
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Student ID"
// @Param body body service.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Student}
// @Router /api/v1/students/{id} [put]
func (c *UserController) UpdateStudent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	var req service.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	student, err := c.StudentService.UpdateStudent(id, req, true)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// DeleteStudent godoc
// @Summary Delete a student
// @Tags Students
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Student ID"
// @Success 200 {object} util.Response
// @Router /api/v1/students/{id} [delete]
func (c *UserController) DeleteStudent(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.StudentService.DeleteStudent(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Student deleted", nil)
}

// GetAdminMe godoc
// @Summary Current admin profile
// @Tags Admins
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Admin}
// @Router /api/v1/admins/me [get]
func (c *UserController) GetAdminMe(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	admin, err := c.AdminService.GetAdmin(p.RefID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, admin)
}

// UpdateAdminMe godoc
// @Summary Update the current admin's profile
// @Tags Admins
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.UpdateAdminRequest true "Fields to change"
// @Success 200 {object} util.Response{data=model.Admin}
// @Router /api/v1/admins/me [put]
func (c *UserController) UpdateAdminMe(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	var req service.UpdateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	admin, err := c.AdminService.UpdateAdmin(p.RefID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, admin)
}

// UploadAdminPicture godoc
// @Summary Upload the current admin's profile picture
// @Tags Admins
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "Image"
// @Success 200 {object} util.Response{data=model.Admin}
// @Router /api/v1/admins/me/picture [post]
func (c *UserController) UploadAdminPicture(ctx *gin.Context) {
	p, _, ok := participant(ctx)
	if !ok {
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	admin, err := c.AdminService.UpdateProfilePicture(ctx.Request.Context(), p.RefID, fh)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, admin)
}

// ListAdmins godoc
// @Summary List admins
// @Tags Admins
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Admin}
// @Router /api/v1/admins [get]
func (c *UserController) ListAdmins(ctx *gin.Context) {
	admins, err := c.AdminService.ListAdmins()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, admins)
}

// GetAdmin godoc
// @Summary Get an admin
// @Tags Admins
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Admin ID"
// @Success 200 {object} util.Response{data=model.Admin}
// @Router /api/v1/admins/{id} [get]
func (c *UserController) GetAdmin(ctx *gin.Context) {
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	admin, err := c.AdminService.GetAdmin(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, admin)
}

// DeleteAdmin godoc
// @Summary Delete an admin
// @Description Main admin only. The last main admin cannot be removed.
// @Tags Admins
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Admin ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/v1/admins/{id} [delete]
func (c *UserController) DeleteAdmin(ctx *gin.Context) {
	_, claims, ok := participant(ctx)
	if !ok {
		return
	}
	id, ok := util.ParamID(ctx, "id")
	if !ok {
		return
	}
	if err := c.AdminService.DeleteAdmin(claims.Role, id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Admin deleted", nil)
}
