package service

import (
	"context"
	"errors"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "auth-test-secret"

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, _, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type authFixture struct {
	db     *gorm.DB
	svc    *AuthService
	cache  *testutil.MemoryRedis
	mailer *recordingMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	cache := testutil.NewMemoryRedis()
	codes := NewCodeStore(cache)
	mailer := &recordingMailer{}
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testJWTSecret, ExpireTime: time.Hour}}
	svc := NewAuthService(
		repository.NewStudentRepository(db),
		repository.NewAdminRepository(db),
		codes,
		mailer,
		NewPhoneVerifier(config.SMSConfig{}, codes),
		cfg,
	)
	return &authFixture{db: db, svc: svc, cache: cache, mailer: mailer}
}

func registerRequest(email string) RegisterStudentRequest {
	return RegisterStudentRequest{
		FirstName:   "Tendai",
		LastName:    "Ncube",
		Email:       email,
		PhoneNumber: "+263772000111",
		Password:    "hunter22",
		Level:       model.LevelALevel,
	}
}

func TestRegisterAndLoginStudent(t *testing.T) {
	f := newAuthFixture(t)

	student, err := f.svc.RegisterStudent(registerRequest("  Tendai@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "tendai@example.com", student.Email)
	assert.Equal(t, model.SubscriptionPending, student.SubscriptionStatus)
	assert.NotEqual(t, "hunter22", student.Password)

	_, err = f.svc.RegisterStudent(registerRequest("TENDAI@example.com"))
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	bad := registerRequest("other@example.com")
	bad.Level = "Grade 7"
	_, err = f.svc.RegisterStudent(bad)
	assert.ErrorIs(t, err, util.ErrValidation)

	short := registerRequest("short@example.com")
	short.Password = "abc"
	_, err = f.svc.RegisterStudent(short)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, _, err = f.svc.LoginStudent("tendai@example.com", "wrong-password")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = f.svc.LoginStudent("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	token, got, err := f.svc.LoginStudent("Tendai@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, student.ID, got.ID)
	claims, err := util.ParseJWT(token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, model.StudentParticipant(student.ID), claims.Participant())
	assert.Equal(t, model.RoleStudent, claims.Role)
}

func TestAdminAccounts(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.EnsureMainAdmin("root@example.com", "rootpass"))
	// a second call is a no-op once an admin exists
	require.NoError(t, f.svc.EnsureMainAdmin("again@example.com", "rootpass"))

	token, main, err := f.svc.LoginAdmin("root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleMainAdmin, main.Role)
	claims, err := util.ParseJWT(token, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, model.AdminParticipant(main.ID), claims.Participant())
	assert.Equal(t, model.RoleMainAdmin, claims.Role)

	req := CreateAdminRequest{FirstName: "Nyasha", LastName: "Dube", Email: "teacher@example.com", Password: "teachpass"}
	_, err = f.svc.CreateAdmin(model.RoleTeacher, req)
	assert.ErrorIs(t, err, util.ErrMainAdminOnly)

	teacher, err := f.svc.CreateAdmin(model.RoleMainAdmin, req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, teacher.Role)

	_, err = f.svc.CreateAdmin(model.RoleMainAdmin, req)
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	req.Email, req.Role = "robot@example.com", model.RoleStudent
	_, err = f.svc.CreateAdmin(model.RoleMainAdmin, req)
	assert.ErrorIs(t, err, util.ErrValidation)

	var admins int64
	require.NoError(t, f.db.Model(&model.Admin{}).Count(&admins).Error)
	assert.EqualValues(t, 2, admins)
}

func TestPhoneOTP(t *testing.T) {
	f := newAuthFixture(t)
	student := testutil.CreateStudent(t, f.db, "phone@example.com")

	require.NoError(t, f.svc.SendPhoneOTP(t.Context(), student.ID))
	code, ok := f.cache.Value(codeKey(phonePurpose, student.PhoneNumber))
	require.True(t, ok)
	assert.Len(t, code, codeDigits)

	_, err := f.svc.VerifyPhoneOTP(t.Context(), student.ID, "not-it")
	assert.ErrorIs(t, err, util.ErrPhoneNotVerified)

	verified, err := f.svc.VerifyPhoneOTP(t.Context(), student.ID, code)
	require.NoError(t, err)
	assert.True(t, verified.IsPhoneVerified)

	// codes are single use
	_, err = f.svc.VerifyPhoneOTP(t.Context(), student.ID, code)
	assert.ErrorIs(t, err, util.ErrPhoneNotVerified)

	err = f.svc.SendPhoneOTP(t.Context(), 999)
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
}

func TestStudentPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	student := testutil.CreateStudent(t, f.db, "reset@example.com")

	err := f.svc.RequestStudentPasswordReset(t.Context(), "missing@example.com")
	assert.ErrorIs(t, err, util.ErrStudentNotFound)

	require.NoError(t, f.svc.RequestStudentPasswordReset(t.Context(), "RESET@example.com"))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, student.Email, f.mailer.sent[0].to)
	code, ok := f.cache.Value(codeKey(studentResetPurpose, student.Email))
	require.True(t, ok)
	assert.True(t, strings.Contains(f.mailer.sent[0].body, code))

	assert.ErrorIs(t, f.svc.VerifyStudentResetCode(t.Context(), student.Email, "000000x"), util.ErrInvalidOTP)
	require.NoError(t, f.svc.VerifyStudentResetCode(t.Context(), student.Email, code))

	// a weak password is rejected before the code is spent
	assert.ErrorIs(t, f.svc.ResetStudentPassword(t.Context(), student.Email, code, "123"), util.ErrValidation)
	require.NoError(t, f.svc.ResetStudentPassword(t.Context(), student.Email, code, "brand-new-pass"))
	assert.ErrorIs(t, f.svc.ResetStudentPassword(t.Context(), student.Email, code, "another-pass"), util.ErrInvalidOTP)

	_, _, err = f.svc.LoginStudent(student.Email, "secret123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = f.svc.LoginStudent(student.Email, "brand-new-pass")
	assert.NoError(t, err)
}

func TestStudentPasswordResetMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	testutil.CreateStudent(t, f.db, "mailfail@example.com")
	f.mailer.err = errors.New("smtp down")

	err := f.svc.RequestStudentPasswordReset(t.Context(), "mailfail@example.com")
	assert.ErrorIs(t, err, util.ErrUpstream)
}

func TestAdminPasswordReset(t *testing.T) {
	f := newAuthFixture(t)
	admin := testutil.CreateAdmin(t, f.db, "ops@example.com", model.RoleTeacher)

	err := f.svc.RequestAdminPasswordReset(t.Context(), admin.Email)
	assert.ErrorIs(t, err, util.ErrValidation, "no contact number on file")

	require.NoError(t, f.db.Model(admin).Update("contact_number", "+263773000222").Error)
	require.NoError(t, f.svc.RequestAdminPasswordReset(t.Context(), admin.Email))
	code, ok := f.cache.Value(codeKey(phonePurpose, "+263773000222"))
	require.True(t, ok)

	assert.ErrorIs(t, f.svc.ResetAdminPassword(t.Context(), admin.Email, "bad", "fresh-pass"), util.ErrInvalidOTP)
	require.NoError(t, f.svc.ResetAdminPassword(t.Context(), admin.Email, code, "fresh-pass"))

	_, _, err = f.svc.LoginAdmin(admin.Email, "fresh-pass")
	assert.NoError(t, err)
}

func TestCodeStore(t *testing.T) {
	cache := testutil.NewMemoryRedis()
	codes := NewCodeStore(cache)

	first, err := codes.Issue(t.Context(), "test", "a@example.com")
	require.NoError(t, err)
	second, err := codes.Issue(t.Context(), "test", "a@example.com")
	require.NoError(t, err)

	if first != second {
		assert.False(t, codes.Check(t.Context(), "test", "a@example.com", first), "a new code replaces the old one")
	}
	assert.False(t, codes.Check(t.Context(), "test", "a@example.com", ""))
	assert.False(t, codes.Check(t.Context(), "other", "a@example.com", second))
	assert.True(t, codes.Consume(t.Context(), "test", "a@example.com", second))
	assert.False(t, codes.Consume(t.Context(), "test", "a@example.com", second))
}
