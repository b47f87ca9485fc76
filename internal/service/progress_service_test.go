package service

import (
	"errors"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type progressFixture struct {
	db      *gorm.DB
	svc     *ProgressService
	clock   time.Time
	student uint
	topic   uint
}

func newProgressFixture(t *testing.T) *progressFixture {
	t.Helper()
	db := testutil.NewDB(t)
	student := testutil.CreateStudent(t, db, "progress@example.com")
	subject := testutil.CreateSubject(t, db, "Biology")
	topic := testutil.CreateTopic(t, db, subject.ID, "Cells")

	f := &progressFixture{
		db:      db,
		svc:     NewProgressService(repository.NewProgressRepository(db), &config.Config{}),
		clock:   fixedNow,
		student: student.ID,
		topic:   topic.ID,
	}
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func ptr[T any](v T) *T {
	return &v
}

func TestUpdateTopicProgressAccumulatesDays(t *testing.T) {
	f := newProgressFixture(t)

	for day := 0; day < model.MinimumDistinctDays; day++ {
		f.clock = fixedNow.AddDate(0, 0, day)
		// two sessions on the same day count once
		for i := 0; i < 2; i++ {
			p, err := f.svc.UpdateTopicProgress(f.student, f.topic, 60, nil)
			require.NoError(t, err)
			assert.Equal(t, model.ProgressInProgress, p.Status)
			assert.Equal(t, day+1 >= model.MinimumDistinctDays, p.MinimumTimeRequirementMet)
		}
	}

	p, err := f.svc.GetTopicProgress(f.student, f.topic)
	require.NoError(t, err)
	assert.EqualValues(t, 600, p.TimeSpent)
	assert.Len(t, p.DailyLogs, model.MinimumDistinctDays)
	assert.EqualValues(t, 120, p.DailyLogs[0].TimeSpent)
	assert.True(t, p.MinimumTimeRequirementMet)
}

func TestUpdateTopicProgressLessonRollup(t *testing.T) {
	f := newProgressFixture(t)

	_, err := f.svc.UpdateTopicProgress(f.student, f.topic, 30, &LessonData{LessonID: "l1", Percentage: ptr(150.0), TotalGot: ptr(7.6)})
	require.NoError(t, err)
	p, err := f.svc.UpdateTopicProgress(f.student, f.topic, 30, &LessonData{Title: "Lesson two", Percentage: ptr(-20.0), Completed: ptr(true)})
	require.NoError(t, err)

	require.Len(t, p.Lessons, 2)
	assert.Equal(t, 100.0, p.Lessons[0].Percentage)
	assert.Equal(t, 0.0, p.Lessons[1].Percentage)
	assert.Equal(t, 50.0, p.OverallPercentage)
	assert.Equal(t, 7.0, p.OverallTotalGot)
	assert.Equal(t, model.ProgressInProgress, p.Status)

	// matched by title; only the sent field changes
	p, err = f.svc.UpdateTopicProgress(f.student, f.topic, 0, &LessonData{Title: "Lesson two", Percentage: ptr(60.0)})
	require.NoError(t, err)
	require.Len(t, p.Lessons, 2)
	assert.True(t, p.Lessons[1].Completed)
	assert.Equal(t, 80.0, p.OverallPercentage)

	p, err = f.svc.UpdateTopicProgress(f.student, f.topic, 0, &LessonData{LessonID: "l1", Completed: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)
	assert.NotNil(t, p.CompletedAt)
}

func TestUpdateTopicProgressValidation(t *testing.T) {
	f := newProgressFixture(t)

	_, err := f.svc.UpdateTopicProgress(f.student, f.topic, -1, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.UpdateTopicProgress(f.student, f.topic, 10, &LessonData{Percentage: ptr(20.0)})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.UpdateLessonProgress(f.student, f.topic, -1, 0, "")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestCompleteTopic(t *testing.T) {
	f := newProgressFixture(t)

	_, err := f.svc.CompleteTopic(f.student, f.topic)
	assert.ErrorIs(t, err, util.ErrProgressNotFound)

	_, err = f.svc.UpdateTopicProgress(f.student, f.topic, 60, &LessonData{LessonID: "l1", Percentage: ptr(40.0)})
	require.NoError(t, err)
	_, err = f.svc.CompleteTopic(f.student, f.topic)
	assert.ErrorIs(t, err, util.ErrMinimumDaysNotMet)

	for day := 1; day < model.MinimumDistinctDays; day++ {
		f.clock = fixedNow.AddDate(0, 0, day)
		_, err = f.svc.UpdateTopicProgress(f.student, f.topic, 60, nil)
		require.NoError(t, err)
	}
	_, err = f.svc.CompleteTopic(f.student, f.topic)
	assert.ErrorIs(t, err, util.ErrValidation, "an incomplete lesson blocks completion")

	_, err = f.svc.UpdateTopicProgress(f.student, f.topic, 0, &LessonData{LessonID: "l1", Completed: ptr(true)})
	require.NoError(t, err)
	p, err := f.svc.CompleteTopic(f.student, f.topic)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressCompleted, p.Status)

	completed, err := f.svc.ListCompleted(f.student)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
	inProgress, err := f.svc.ListInProgress(f.student)
	require.NoError(t, err)
	assert.Empty(t, inProgress)
}

func TestGetTopicProgressNotStarted(t *testing.T) {
	f := newProgressFixture(t)

	p, err := f.svc.GetTopicProgress(f.student, f.topic)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressNotStarted, p.Status)
	assert.Zero(t, p.ID)

	all, err := f.svc.ListAll(f.student)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateLessonProgressMovesPosition(t *testing.T) {
	f := newProgressFixture(t)

	p, err := f.svc.UpdateLessonProgress(f.student, f.topic, 2, 1, "l3")
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentLessonIndex)
	assert.Equal(t, "l3", p.CurrentLessonID)
	assert.Equal(t, model.ProgressInProgress, p.Status)
	assert.Empty(t, p.DailyLogs)
}

func TestCheckAndResetStaleProgress(t *testing.T) {
	f := newProgressFixture(t)

	_, err := f.svc.UpdateTopicProgress(f.student, f.topic, 60, nil)
	require.NoError(t, err)

	f.clock = fixedNow.Add(6 * 24 * time.Hour)
	n, err := f.svc.CheckAndResetStaleProgress()
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock = fixedNow.Add(8 * 24 * time.Hour)
	n, err = f.svc.CheckAndResetStaleProgress()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, f.svc.ResetTopicProgress(f.student, f.topic), util.ErrProgressNotFound)
}

func TestFirstUpdateRacingAnotherInsert(t *testing.T) {
	f := newProgressFixture(t)

	// another request creates the row right after our lookup misses
	inserted := false
	err := f.db.Callback().Query().After("gorm:query").Register("test:concurrent_insert", func(tx *gorm.DB) {
		if inserted || tx.Statement.Table != "student_topic_progress" || !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return
		}
		inserted = true
		rival := model.StudentTopicProgress{
			StudentID:    f.student,
			TopicID:      f.topic,
			Status:       model.ProgressInProgress,
			LastAccessed: fixedNow,
			TimeSpent:    100,
			DailyLogs:    []model.DailyLog{{Date: fixedNow.Format(util.DateFormat), TimeSpent: 100}},
		}
		require.NoError(t, f.db.Session(&gorm.Session{NewDB: true}).Create(&rival).Error)
	})
	require.NoError(t, err)

	p, err := f.svc.UpdateTopicProgress(f.student, f.topic, 60, nil)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.EqualValues(t, 160, p.TimeSpent)
	require.Len(t, p.DailyLogs, 1)
	assert.EqualValues(t, 160, p.DailyLogs[0].TimeSpent)

	var rows int64
	require.NoError(t, f.db.Model(&model.StudentTopicProgress{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
