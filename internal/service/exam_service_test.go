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

type examFixture struct {
	svc     *ExamService
	student *model.Student
	subject *model.Subject
	topic   *model.Topic
}

func newExamFixture(t *testing.T) *examFixture {
	t.Helper()
	db := testutil.NewDB(t)
	subject := testutil.CreateSubject(t, db, "Mathematics")
	return &examFixture{
		svc: NewExamService(
			repository.NewExamRepository(db),
			repository.NewRecordExamRepository(db),
			repository.NewSubjectRepository(db),
			repository.NewTopicRepository(db),
			repository.NewStudentRepository(db),
		),
		student: testutil.CreateStudent(t, db, "exam@example.com"),
		subject: subject,
		topic:   testutil.CreateTopic(t, db, subject.ID, "Algebra"),
	}
}

func (f *examFixture) request(published bool) ExamRequest {
	return ExamRequest{
		SubjectID:         f.subject.ID,
		TopicID:           &f.topic.ID,
		Level:             model.LevelOLevel,
		Title:             "Algebra test",
		DurationInMinutes: 30,
		IsPublished:       &published,
		Questions: []model.ExamQuestion{
			{QuestionText: "2+2", Options: []string{"3", "4"}, CorrectAnswer: "4"},
			{QuestionText: "Solve x+1=3", CorrectAnswer: "x = 2"},
			{QuestionText: "Capital letter of a", Options: []string{"A", "B"}, CorrectAnswer: "A"},
			{QuestionText: "Is zero even", Options: []string{"Yes", "No"}, CorrectAnswer: "Yes"},
		},
	}
}

func TestScoreExam(t *testing.T) {
	questions := []model.ExamQuestion{
		{CorrectAnswer: "Paris"},
		{CorrectAnswer: "4"},
		{CorrectAnswer: "blue"},
	}
	assert.Equal(t, 100.0, scoreExam(questions, []string{" paris", "4", "BLUE "}))
	assert.Equal(t, 66.67, scoreExam(questions, []string{"paris", "4"}))
	assert.Equal(t, 0.0, scoreExam(questions, nil))
	assert.Equal(t, 0.0, scoreExam(nil, []string{"x"}))
}

func TestCreateExamValidation(t *testing.T) {
	f := newExamFixture(t)

	req := f.request(false)
	req.Questions[0].CorrectAnswer = "5"
	_, err := f.svc.CreateExam(req)
	assert.ErrorIs(t, err, util.ErrValidation)

	req = f.request(false)
	req.SubjectID = 999
	_, err = f.svc.CreateExam(req)
	assert.ErrorIs(t, err, util.ErrSubjectNotFound)

	req = f.request(false)
	missing := uint(999)
	req.TopicID = &missing
	_, err = f.svc.CreateExam(req)
	assert.ErrorIs(t, err, util.ErrTopicNotFound)

	req = f.request(false)
	req.DurationInMinutes = 0
	_, err = f.svc.CreateExam(req)
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestSubmitAnswersRequiresPublishedExam(t *testing.T) {
	f := newExamFixture(t)

	exam, err := f.svc.CreateExam(f.request(false))
	require.NoError(t, err)
	assert.False(t, exam.IsPublished)

	_, err = f.svc.SubmitAnswers(f.student.ID, exam.ID, []string{"4"})
	assert.ErrorIs(t, err, util.ErrValidation)

	published, err := f.svc.TogglePublish(exam.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	record, err := f.svc.SubmitAnswers(f.student.ID, exam.ID, []string{"4", "X = 2", "b"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, record.Percentage)
	assert.Equal(t, f.student.ID, record.StudentID)

	records, err := f.svc.RecordsByStudent(f.student.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordResult(t *testing.T) {
	f := newExamFixture(t)
	exam, err := f.svc.CreateExam(f.request(true))
	require.NoError(t, err)

	_, err = f.svc.RecordResult(f.student.ID, exam.ID, 101)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.RecordResult(999, exam.ID, 50)
	assert.ErrorIs(t, err, util.ErrStudentNotFound)

	_, err = f.svc.RecordResult(f.student.ID, 999, 50)
	assert.ErrorIs(t, err, util.ErrExamNotFound)

	low, err := f.svc.RecordResult(f.student.ID, exam.ID, 40.456)
	require.NoError(t, err)
	assert.Equal(t, 40.46, low.Percentage)
	_, err = f.svc.RecordResult(f.student.ID, exam.ID, 90)
	require.NoError(t, err)

	top, err := f.svc.TopRecords(exam.ID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 90.0, top[0].Percentage)

	byExam, err := f.svc.RecordsByExam(exam.ID)
	require.NoError(t, err)
	assert.Len(t, byExam, 2)

	require.NoError(t, f.svc.DeleteRecord(low.ID))
	assert.ErrorIs(t, f.svc.DeleteRecord(low.ID), util.ErrRecordNotFound)

	require.NoError(t, f.svc.DeleteExam(exam.ID))
	_, err = f.svc.GetExam(exam.ID)
	assert.ErrorIs(t, err, util.ErrExamNotFound)
	latest, err := f.svc.LatestRecords(0)
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestListExamsPublishedOnly(t *testing.T) {
	f := newExamFixture(t)
	_, err := f.svc.CreateExam(f.request(true))
	require.NoError(t, err)
	_, err = f.svc.CreateExam(f.request(false))
	require.NoError(t, err)

	all, err := f.svc.ListExams(repository.ExamFilter{SubjectID: f.subject.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	visible, err := f.svc.ListExams(repository.ExamFilter{PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	_, err = f.svc.ListExams(repository.ExamFilter{Level: "Grade 12"})
	assert.ErrorIs(t, err, util.ErrValidation)
}
