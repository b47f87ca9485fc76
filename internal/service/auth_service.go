package service

import (
	"context"
	"errors"
	"fmt"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	studentResetPurpose = "reset:student"
	minPasswordLength   = 6
)

type AuthService struct {
	students *repository.StudentRepository
	admins   *repository.AdminRepository
	codes    *CodeStore
	mailer   Mailer
	phone    PhoneVerifier
	cfg      *config.Config
}

func NewAuthService(students *repository.StudentRepository, admins *repository.AdminRepository, codes *CodeStore, mailer Mailer, phone PhoneVerifier, cfg *config.Config) *AuthService {
	return &AuthService{
		students: students,
		admins:   admins,
		codes:    codes,
		mailer:   mailer,
		phone:    phone,
		cfg:      cfg,
	}
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", util.NewError(util.ErrValidation, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterStudentRequest struct {
	FirstName      string             `json:"firstName" binding:"required"`
	LastName       string             `json:"lastName" binding:"required"`
	Email          string             `json:"email" binding:"required,email"`
	PhoneNumber    string             `json:"phoneNumber" binding:"required"`
	Password       string             `json:"password" binding:"required"`
	Level          model.StudentLevel `json:"level" binding:"required"`
	Address        string             `json:"address"`
	School         string             `json:"school"`
	Subjects       []string           `json:"subjects"`
	NextOfKinName  string             `json:"nextOfKinName"`
	NextOfKinPhone string             `json:"nextOfKinPhone"`
}

func (s *AuthService) RegisterStudent(req RegisterStudentRequest) (*model.Student, error) {
	if !req.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	email := normalizeEmail(req.Email)
	if _, err := s.students.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	subjects := req.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	student := &model.Student{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              email,
		PhoneNumber:        req.PhoneNumber,
		Password:           hashed,
		Level:              req.Level,
		Address:            req.Address,
		School:             req.School,
		Subjects:           subjects,
		SubscriptionStatus: model.SubscriptionPending,
		NextOfKinName:      req.NextOfKinName,
		NextOfKinPhone:     req.NextOfKinPhone,
	}
	if err := s.students.Create(student); err != nil {
		return nil, mapDuplicate(err, util.ErrEmailRegistered)
	}
	return student, nil
}

func (s *AuthService) LoginStudent(email, password string) (string, *model.Student, error) {
	student, err := s.students.FindByEmail(normalizeEmail(email))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	token, err := util.GenerateJWT(model.StudentParticipant(student.ID), model.RoleStudent, student.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, student, nil
}

func (s *AuthService) LoginAdmin(email, password string) (string, *model.Admin, error) {
	admin, err := s.admins.FindByEmail(normalizeEmail(email))
	if err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}
	token, err := util.GenerateJWT(model.AdminParticipant(admin.ID), admin.Role, admin.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

type CreateAdminRequest struct {
	FirstName     string         `json:"firstName" binding:"required"`
	LastName      string         `json:"lastName" binding:"required"`
	Email         string         `json:"email" binding:"required,email"`
	ContactNumber string         `json:"contactNumber"`
	Password      string         `json:"password" binding:"required"`
	Role          model.UserRole `json:"role"`
}

// CreateAdmin is reserved for the main admin.
func (s *AuthService) CreateAdmin(actorRole model.UserRole, req CreateAdminRequest) (*model.Admin, error) {
	if actorRole != model.RoleMainAdmin {
		return nil, util.ErrMainAdminOnly
	}
	return s.createAdmin(req)
}

func (s *AuthService) createAdmin(req CreateAdminRequest) (*model.Admin, error) {
	role := req.Role
	if role == "" {
		role = model.RoleTeacher
	}
	if !role.IsAdmin() {
		return nil, util.NewError(util.ErrValidation, "Invalid admin role")
	}
	email := normalizeEmail(req.Email)
	if _, err := s.admins.FindByEmail(email); err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &model.Admin{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         email,
		ContactNumber: req.ContactNumber,
		Password:      hashed,
		Role:          role,
	}
	if err := s.admins.Create(admin); err != nil {
		return nil, mapDuplicate(err, util.ErrEmailRegistered)
	}
	return admin, nil
}

// EnsureMainAdmin seeds the first main admin from configuration when the
// admins table is empty.
func (s *AuthService) EnsureMainAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	count, err := s.admins.Count()
	if err != nil || count > 0 {
		return err
	}
	_, err = s.createAdmin(CreateAdminRequest{
		FirstName: "Main",
		LastName:  "Admin",
		Email:     email,
		Password:  password,
		Role:      model.RoleMainAdmin,
	})
	if err == nil {
		logger.Log.Info("main admin account created", zap.String("email", email))
	}
	return err
}

// SendPhoneOTP starts an SMS verification for the student's phone number.
func (s *AuthService) SendPhoneOTP(ctx context.Context, studentID uint) error {
	student, err := s.students.FindByID(studentID)
	if err != nil {
		return mapNotFound(err, util.ErrStudentNotFound)
	}
	if err := s.phone.Start(ctx, student.PhoneNumber); err != nil {
		logger.Log.Error("failed to send phone verification", zap.Uint("studentId", studentID), zap.Error(err))
		return fmt.Errorf("%w: %v", util.NewError(util.ErrUpstream, "Failed to send verification code"), err)
	}
	return nil
}

func (s *AuthService) VerifyPhoneOTP(ctx context.Context, studentID uint, code string) (*model.Student, error) {
	student, err := s.students.FindByID(studentID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrStudentNotFound)
	}
	ok, err := s.phone.Check(ctx, student.PhoneNumber, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.NewError(util.ErrUpstream, "Failed to check verification code"), err)
	}
	if !ok {
		return nil, util.ErrPhoneNotVerified
	}
	student.IsPhoneVerified = true
	if err := s.students.Save(student); err != nil {
		return nil, err
	}
	return student, nil
}

// RequestStudentPasswordReset emails a one-time code valid for ten minutes.
func (s *AuthService) RequestStudentPasswordReset(ctx context.Context, email string) error {
	student, err := s.students.FindByEmail(normalizeEmail(email))
	if err != nil {
		return mapNotFound(err, util.ErrStudentNotFound)
	}
	code, err := s.codes.Issue(ctx, studentResetPurpose, student.Email)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.\n",
		student.FirstName, code, int(codeTTL.Minutes()))
	if err := s.mailer.Send(ctx, student.FirstName+" "+student.LastName, student.Email, "Password reset code", body); err != nil {
		logger.Log.Error("failed to send password reset email", zap.String("email", student.Email), zap.Error(err))
		return fmt.Errorf("%w: %v", util.NewError(util.ErrUpstream, "Failed to send reset email"), err)
	}
	return nil
}

func (s *AuthService) VerifyStudentResetCode(ctx context.Context, email, code string) error {
	if !s.codes.Check(ctx, studentResetPurpose, normalizeEmail(email), code) {
		return util.ErrInvalidOTP
	}
	return nil
}

func (s *AuthService) ResetStudentPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	student, err := s.students.FindByEmail(email)
	if err != nil {
		return mapNotFound(err, util.ErrStudentNotFound)
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if !s.codes.Consume(ctx, studentResetPurpose, email, code) {
		return util.ErrInvalidOTP
	}
	student.Password = hashed
	return s.students.Save(student)
}

// RequestAdminPasswordReset sends an SMS code to the admin's contact number.
func (s *AuthService) RequestAdminPasswordReset(ctx context.Context, email string) error {
	admin, err := s.admins.FindByEmail(normalizeEmail(email))
	if err != nil {
		return mapNotFound(err, util.ErrAdminNotFound)
	}
	if admin.ContactNumber == "" {
		return util.NewError(util.ErrValidation, "Admin has no contact number")
	}
	if err := s.phone.Start(ctx, admin.ContactNumber); err != nil {
		logger.Log.Error("failed to send admin reset code", zap.Uint("adminId", admin.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", util.NewError(util.ErrUpstream, "Failed to send verification code"), err)
	}
	return nil
}

func (s *AuthService) ResetAdminPassword(ctx context.Context, email, code, newPassword string) error {
	admin, err := s.admins.FindByEmail(normalizeEmail(email))
	if err != nil {
		return mapNotFound(err, util.ErrAdminNotFound)
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.phone.Check(ctx, admin.ContactNumber, code)
	if err != nil {
		return fmt.Errorf("%w: %v", util.NewError(util.ErrUpstream, "Failed to check verification code"), err)
	}
	if !ok {
		return util.ErrInvalidOTP
	}
	admin.Password = hashed
	return s.admins.Save(admin)
}
