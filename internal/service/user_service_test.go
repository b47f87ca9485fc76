package service

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) *StorageService {
	t.Helper()
	return &StorageService{Provider: &LocalStorageProvider{Root: t.TempDir()}}
}

func TestUpdateStudent(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewStudentService(repository.NewStudentRepository(db), newLocalStorage(t))
	student := testutil.CreateStudent(t, db, "profile@example.com")
	require.NoError(t, db.Model(student).Update("is_phone_verified", true).Error)

	// same number keeps the verification flag
	got, err := svc.UpdateStudent(student.ID, UpdateStudentRequest{PhoneNumber: ptr(student.PhoneNumber), School: ptr("Prince Edward")}, false)
	require.NoError(t, err)
	assert.True(t, got.IsPhoneVerified)
	assert.Equal(t, "Prince Edward", got.School)

	got, err = svc.UpdateStudent(student.ID, UpdateStudentRequest{PhoneNumber: ptr("+263779999999")}, false)
	require.NoError(t, err)
	assert.False(t, got.IsPhoneVerified)

	_, err = svc.UpdateStudent(student.ID, UpdateStudentRequest{Level: ptr(model.StudentLevel("Grade 7"))}, false)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = svc.UpdateStudent(student.ID, UpdateStudentRequest{SubscriptionStatus: ptr(model.SubscriptionActive)}, false)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.UpdateStudent(student.ID, UpdateStudentRequest{SubscriptionStatus: ptr(model.SubscriptionStatus("lifetime"))}, true)
	assert.ErrorIs(t, err, util.ErrValidation)

	got, err = svc.UpdateStudent(student.ID, UpdateStudentRequest{SubscriptionStatus: ptr(model.SubscriptionActive)}, true)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, got.SubscriptionStatus)

	stored, err := svc.GetStudent(student.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, stored.SubscriptionStatus)
	assert.Equal(t, "+263779999999", stored.PhoneNumber)

	_, err = svc.UpdateStudent(999, UpdateStudentRequest{}, true)
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
}

func TestListAndDeleteStudents(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewStudentService(repository.NewStudentRepository(db), newLocalStorage(t))
	first := testutil.CreateStudent(t, db, "chipo@example.com")
	testutil.CreateStudent(t, db, "farai@example.com")

	list, total, err := svc.ListStudents("chipo", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	_, total, err = svc.ListStudents("", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	require.NoError(t, svc.DeleteStudent(t.Context(), first.ID))
	_, err = svc.GetStudent(first.ID)
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
	assert.ErrorIs(t, svc.DeleteStudent(t.Context(), first.ID), util.ErrStudentNotFound)
}

func TestDeleteAdminKeepsLastMainAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(repository.NewAdminRepository(db), newLocalStorage(t))
	main := testutil.CreateAdmin(t, db, "main@example.com", model.RoleMainAdmin)
	teacher := testutil.CreateAdmin(t, db, "teacher@example.com", model.RoleTeacher)

	assert.ErrorIs(t, svc.DeleteAdmin(model.RoleTeacher, teacher.ID), util.ErrMainAdminOnly)
	assert.ErrorIs(t, svc.DeleteAdmin(model.RoleMainAdmin, main.ID), util.ErrConflict)

	second := testutil.CreateAdmin(t, db, "second@example.com", model.RoleMainAdmin)
	require.NoError(t, svc.DeleteAdmin(model.RoleMainAdmin, main.ID))
	assert.ErrorIs(t, svc.DeleteAdmin(model.RoleMainAdmin, second.ID), util.ErrConflict)

	require.NoError(t, svc.DeleteAdmin(model.RoleMainAdmin, teacher.ID))
	assert.ErrorIs(t, svc.DeleteAdmin(model.RoleMainAdmin, teacher.ID), util.ErrAdminNotFound)

	admins, err := svc.ListAdmins()
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, second.ID, admins[0].ID)
}

func TestUpdateAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(repository.NewAdminRepository(db), newLocalStorage(t))
	admin := testutil.CreateAdmin(t, db, "edit@example.com", model.RoleTeacher)

	got, err := svc.UpdateAdmin(admin.ID, UpdateAdminRequest{ContactNumber: ptr("+263774444444")})
	require.NoError(t, err)
	assert.Equal(t, "+263774444444", got.ContactNumber)
	assert.Equal(t, admin.FirstName, got.FirstName)
}

func TestParticipantResolver(t *testing.T) {
	db := testutil.NewDB(t)
	resolver := NewParticipantResolver(repository.NewStudentRepository(db), repository.NewAdminRepository(db))
	student := testutil.CreateStudent(t, db, "who@example.com")
	admin := testutil.CreateAdmin(t, db, "staff@example.com", model.RoleTeacher)

	prof, err := resolver.Resolve(model.StudentParticipant(student.ID))
	require.NoError(t, err)
	assert.Equal(t, student.Email, prof.Email)
	assert.Equal(t, model.ParticipantStudent, prof.Kind)

	prof, err = resolver.Resolve(model.AdminParticipant(admin.ID))
	require.NoError(t, err)
	assert.Equal(t, admin.Email, prof.Email)

	// ids overlap across kinds, the kind decides which table is read
	_, err = resolver.Resolve(model.AdminParticipant(student.ID + 10))
	assert.ErrorIs(t, err, util.ErrAdminNotFound)
	assert.ErrorIs(t, resolver.Exists(model.StudentParticipant(999)), util.ErrStudentNotFound)
	_, err = resolver.Resolve(model.Participant{Kind: "robot", RefID: 1})
	assert.ErrorIs(t, err, util.ErrValidation)

	gone := model.StudentParticipant(999)
	all, err := resolver.ResolveAll([]model.Participant{
		model.StudentParticipant(student.ID),
		model.AdminParticipant(admin.ID),
		gone,
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, gone)
	assert.Equal(t, admin.FirstName, all[model.AdminParticipant(admin.ID)].FirstName)
}
