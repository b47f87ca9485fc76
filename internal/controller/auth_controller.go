package controller

import (
	"learning_platform_backend/internal/service"
	"learning_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type CodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type OTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// RegisterStudent godoc
// @Summary Register a student
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body service.RegisterStudentRequest true "Registration"
// @Success 201 {object} util.Response{data=model.Student}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "Email already exists"
// @Router /api/v1/students/register [post]
func (c *AuthController) RegisterStudent(ctx *gin.Context) {
	var req service.RegisterStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	student, err := c.AuthService.RegisterStudent(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, student)
}

// LoginStudent godoc
// @Summary Student login
// @Description Checks the credentials and returns a JWT with the student role
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response "Invalid email or password"
// @Router /api/v1/students/login [post]
func (c *AuthController) LoginStudent(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	token, student, err := c.AuthService.LoginStudent(req.Email, req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Login successful", gin.H{"token": token, "student": student})
}

// LoginAdmin godoc
// @Summary Admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} util.Response{data=object}
// @Failure 401 {object} util.Response
// @Router /api/v1/admins/login [post]
func (c *AuthController) LoginAdmin(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	token, admin, err := c.AuthService.LoginAdmin(req.Email, req.Password)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Login successful", gin.H{"token": token, "admin": admin})
}

// CreateAdmin godoc
// @Summary Create an admin
// @Description Only the main admin may create admins
// @Tags Auth
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateAdminRequest true "Admin"
// @Success 201 {object} util.Response{data=model.Admin}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/v1/admins [post]
func (c *AuthController) CreateAdmin(ctx *gin.Context) {
	_, claims, ok := participant(ctx)
	if !ok {
		return
	}
	var req service.CreateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}

	admin, err := c.AuthService.CreateAdmin(claims.Role, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, admin)
}

// SendPhoneOTP godoc
// @Summary Send a phone verification code
// @Tags Auth
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/v1/students/me/phone/send-otp [post]
func (c *AuthController) SendPhoneOTP(ctx *gin.Context) {
	id, ok := studentID(ctx)
	if !ok {
		return
	}
	if err := c.AuthService.SendPhoneOTP(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Verification code sent", nil)
}

// VerifyPhoneOTP godoc
// @Summary Verify the phone code
// @Tags Auth
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body OTPRequest true "Code"
// @Success 200 {object} util.Response{data=model.Student}
// @Failure 400 {object} util.Response
// @Router /api/v1/students/me/phone/verify-otp [post]
func (c *AuthController) VerifyPhoneOTP(ctx *gin.Context) {
	id, ok := studentID(ctx)
	if !ok {
		return
	}
	var req OTPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	student, err := c.AuthService.VerifyPhoneOTP(ctx.Request.Context(), id, req.Code)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Phone number verified", student)
}

// RequestStudentReset godoc
// @Summary Email a password reset code to a student
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} util.Response
// @Router /api/v1/students/password-reset/request [post]
func (c *AuthController) RequestStudentReset(ctx *gin.Context) {
	var req EmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if err := c.AuthService.RequestStudentPasswordReset(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Reset code sent", nil)
}

// VerifyStudentResetCode godoc
// @Summary Check a student reset code without consuming it
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body CodeRequest true "Email and code"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/students/password-reset/verify [post]
func (c *AuthController) VerifyStudentResetCode(ctx *gin.Context) {
	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if err := c.AuthService.VerifyStudentResetCode(ctx.Request.Context(), req.Email, req.Code); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Code verified", nil)
}

// ResetStudentPassword godoc
// @Summary Reset a student password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/students/password-reset/reset [post]
func (c *AuthController) ResetStudentPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if err := c.AuthService.ResetStudentPassword(ctx.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Password updated", nil)
}

// RequestAdminReset godoc
// @Summary Text a password reset code to an admin
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} util.Response
// @Router /api/v1/admins/password-reset/request [post]
func (c *AuthController) RequestAdminReset(ctx *gin.Context) {
	var req EmailRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if err := c.AuthService.RequestAdminPasswordReset(ctx.Request.Context(), req.Email); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Reset code sent", nil)
}

// ResetAdminPassword godoc
// @Summary Reset an admin password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Reset"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/admins/password-reset/reset [post]
func (c *AuthController) ResetAdminPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationError(ctx, err)
		return
	}
	if err := c.AuthService.ResetAdminPassword(ctx.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "Password updated", nil)
}
