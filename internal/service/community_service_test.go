package service

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type communityFixture struct {
	db      *gorm.DB
	svc     *CommunityService
	student model.Participant
	admin   model.Participant
}

func newCommunityFixture(t *testing.T) *communityFixture {
	t.Helper()
	db := testutil.NewDB(t)
	students := repository.NewStudentRepository(db)
	admins := repository.NewAdminRepository(db)
	svc := NewCommunityService(
		repository.NewCommunityRepository(db),
		repository.NewSubjectRepository(db),
		NewParticipantResolver(students, admins),
		newLocalStorage(t),
	)
	return &communityFixture{
		db:      db,
		svc:     svc,
		student: model.StudentParticipant(testutil.CreateStudent(t, db, "member@example.com").ID),
		admin:   model.AdminParticipant(testutil.CreateAdmin(t, db, "mod@example.com", model.RoleTeacher).ID),
	}
}

func TestCreateCommunityChecksRefs(t *testing.T) {
	f := newCommunityFixture(t)

	_, err := f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: "Maths", SubjectID: 999}, nil)
	assert.ErrorIs(t, err, util.ErrSubjectNotFound)
	_, err = f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: "Maths", Level: "Grade 7"}, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	subject := testutil.CreateSubject(t, f.db, "Mathematics")
	c, err := f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: " Maths club ", SubjectID: subject.ID, Level: model.LevelOLevel}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Maths club", c.Name)
	assert.True(t, c.ShowCommunity)
	require.NotNil(t, c.Subject)
	assert.Equal(t, "Mathematics", c.Subject.SubjectName)

	_, err = f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: "Hidden", ShowCommunity: ptr(false)}, nil)
	require.NoError(t, err)
	visible, err := f.svc.ListCommunities("", 0, true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestCommunityMembership(t *testing.T) {
	f := newCommunityFixture(t)
	c, err := f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: "Physics"}, nil)
	require.NoError(t, err)

	_, err = f.svc.AddMember(c.ID, model.StudentParticipant(999))
	assert.ErrorIs(t, err, util.ErrStudentNotFound)
	_, err = f.svc.AddMember(999, f.student)
	assert.ErrorIs(t, err, util.ErrCommunityNotFound)

	got, err := f.svc.AddMember(c.ID, f.student)
	require.NoError(t, err)
	require.Len(t, got.Members, 1)
	assert.Equal(t, f.student, got.Members[0].Member)

	_, err = f.svc.AddMember(c.ID, f.student)
	assert.ErrorIs(t, err, util.ErrAlreadyMember)

	// both tables start at id 1, the kind keeps the members apart
	require.Equal(t, f.student.RefID, f.admin.RefID)
	got, err = f.svc.AddMember(c.ID, f.admin)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	mine, err := f.svc.MyCommunities(f.student)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, c.ID, mine[0].ID)

	_, err = f.svc.RemoveMember(c.ID, f.student)
	require.NoError(t, err)
	_, err = f.svc.RemoveMember(c.ID, f.student)
	assert.ErrorIs(t, err, util.ErrNotMember)

	mine, err = f.svc.MyCommunities(f.student)
	require.NoError(t, err)
	assert.Empty(t, mine)
	mine, err = f.svc.MyCommunities(f.admin)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCommunityMessages(t *testing.T) {
	f := newCommunityFixture(t)
	c, err := f.svc.CreateCommunity(t.Context(), CommunityRequest{Name: "History"}, nil)
	require.NoError(t, err)
	outsider := model.StudentParticipant(testutil.CreateStudent(t, f.db, "outsider@example.com").ID)

	_, err = f.svc.PostMessage(t.Context(), c.ID, f.student, "hello", nil)
	assert.ErrorIs(t, err, util.ErrPermissionDenied, "students post only after joining")

	_, err = f.svc.AddMember(c.ID, f.student)
	require.NoError(t, err)
	_, err = f.svc.PostMessage(t.Context(), c.ID, f.student, "   ", nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	mine, err := f.svc.PostMessage(t.Context(), c.ID, f.student, " When is the test? ", nil)
	require.NoError(t, err)
	assert.Equal(t, "When is the test?", mine.Message)
	require.NotNil(t, mine.SenderProfile)
	assert.Equal(t, "member@example.com", mine.SenderProfile.Email)

	notice, err := f.svc.PostMessage(t.Context(), c.ID, f.admin, "Friday", nil)
	require.NoError(t, err, "admins moderate without joining")

	views, total, err := f.svc.Messages(c.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, views, 2)
	for _, v := range views {
		require.NotNil(t, v.SenderProfile)
	}

	assert.ErrorIs(t, f.svc.DeleteMessage(t.Context(), mine.ID, outsider), util.ErrPermissionDenied)
	require.NoError(t, f.svc.DeleteMessage(t.Context(), mine.ID, f.student))
	require.NoError(t, f.svc.DeleteMessage(t.Context(), notice.ID, model.AdminParticipant(999)))
	assert.ErrorIs(t, f.svc.DeleteMessage(t.Context(), notice.ID, f.admin), util.ErrMessageNotFound)

	_, total, err = f.svc.Messages(c.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
