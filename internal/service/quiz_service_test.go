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

func newQuizFixture(t *testing.T) (*QuizService, *model.TopicContent) {
	t.Helper()
	db := testutil.NewDB(t)
	subject := testutil.CreateSubject(t, db, "Physics")
	topic := testutil.CreateTopic(t, db, subject.ID, "Motion")
	content := testutil.CreateContent(t, db, topic.ID, "l1", "l2")
	return NewQuizService(repository.NewQuizRepository(db), repository.NewTopicContentRepository(db)), content
}

func quizQuestions() []model.QuizQuestion {
	return []model.QuizQuestion{
		{QuestionText: "Unit of force", Type: model.QuizMultipleChoice, Options: []string{"Newton", "Joule"}, CorrectAnswer: "Newton"},
		{QuestionText: "Define velocity", Type: model.QuizOpenEnded, CorrectAnswer: "speed with direction"},
	}
}

func TestValidateQuizQuestions(t *testing.T) {
	assert.NoError(t, validateQuizQuestions(quizQuestions()))
	assert.ErrorIs(t, validateQuizQuestions(nil), util.ErrValidation)
	assert.ErrorIs(t, validateQuizQuestions([]model.QuizQuestion{{QuestionText: "q", Type: "essay"}}), util.ErrValidation)
	assert.ErrorIs(t, validateQuizQuestions([]model.QuizQuestion{
		{QuestionText: "q", Type: model.QuizMultipleChoice, Options: []string{"a"}, CorrectAnswer: "a"},
	}), util.ErrValidation)
	assert.ErrorIs(t, validateQuizQuestions([]model.QuizQuestion{
		{QuestionText: "q", Type: model.QuizMultipleChoice, Options: []string{"a", "b"}, CorrectAnswer: "c"},
	}), util.ErrValidation)
}

func TestUpsertQuiz(t *testing.T) {
	svc, content := newQuizFixture(t)

	_, _, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: "l9", Questions: quizQuestions()})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, _, err = svc.UpsertQuiz(QuizRequest{TopicContentID: 999, LessonID: "l1", Questions: quizQuestions()})
	assert.ErrorIs(t, err, util.ErrTopicContentNotFound)

	quiz, created, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: "l1", Questions: quizQuestions()})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.LifecycleActive, quiz.Lifecycle)

	again, created, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: "l1", Questions: quizQuestions()[:1]})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, quiz.ID, again.ID)
	assert.Len(t, again.Questions, 1)
}

func TestQuizLifecycle(t *testing.T) {
	svc, content := newQuizFixture(t)
	quiz, _, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: "l1", Questions: quizQuestions()})
	require.NoError(t, err)

	_, err = svc.MoveQuiz(quiz.ID, model.LifecycleActive)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	trashed, err := svc.MoveQuiz(quiz.ID, model.LifecycleTrashed)
	require.NoError(t, err)
	assert.Equal(t, model.LifecycleTrashed, trashed.Lifecycle)
	assert.NotNil(t, trashed.LifecycleChangedAt)

	_, err = svc.QuizForLesson(content.ID, "l1")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	listed, err := svc.ListQuizzes(model.LifecycleTrashed, content.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	_, err = svc.ListQuizzes(model.LifecyclePurged, 0)
	assert.ErrorIs(t, err, util.ErrValidation)

	// writing to a trashed quiz brings it back
	revived, created, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: "l1", Questions: quizQuestions()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.LifecycleActive, revived.Lifecycle)

	active, err := svc.QuizForLesson(content.ID, "l1")
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, active.ID)

	gone, err := svc.MoveQuiz(quiz.ID, model.LifecyclePurged)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, err = svc.GetQuiz(quiz.ID)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestBulkTrashRestoreAndPurge(t *testing.T) {
	svc, content := newQuizFixture(t)
	for _, lesson := range []string{"l1", "l2"} {
		_, _, err := svc.UpsertQuiz(QuizRequest{TopicContentID: content.ID, LessonID: lesson, Questions: quizQuestions()})
		require.NoError(t, err)
	}

	_, err := svc.TrashByContent(0, "")
	assert.ErrorIs(t, err, util.ErrValidation)

	n, err := svc.TrashByContent(content.ID, "l1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.TrashByContent(content.ID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.TrashByContent(content.ID, "")
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	counts, err := svc.Counts()
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[model.LifecycleActive])
	assert.EqualValues(t, 2, counts[model.LifecycleTrashed])

	n, err = svc.RestoreByContent(content.ID, "l2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.PurgeTrashed(content.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.PurgeTrashed(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	remaining, err := svc.ListQuizzes("", 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "l2", remaining[0].LessonID)
}
