package service

import (
	"errors"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"
)

const defaultStaleAfter = 7 * 24 * time.Hour

type ProgressService struct {
	repo       *repository.ProgressRepository
	staleAfter time.Duration
	now        func() time.Time
}

func NewProgressService(repo *repository.ProgressRepository, cfg *config.Config) *ProgressService {
	staleAfter := defaultStaleAfter
	if cfg != nil && cfg.Progress.StaleAfterDays > 0 {
		staleAfter = time.Duration(cfg.Progress.StaleAfterDays) * 24 * time.Hour
	}
	return &ProgressService{repo: repo, staleAfter: staleAfter, now: time.Now}
}

// LessonData is the optional scoring and navigation payload of a progress
// update. Nil fields are left untouched.
type LessonData struct {
	LessonIndex     *int     `json:"lessonIndex"`
	SubheadingIndex *int     `json:"subheadingIndex"`
	LessonID        string   `json:"lessonid"`
	Title           string   `json:"title"`
	TotalGot        *float64 `json:"totalGot"`
	Percentage      *float64 `json:"percentage"`
	Completed       *bool    `json:"completed"`
}

func (d *LessonData) hasScore() bool {
	return d != nil && (d.TotalGot != nil || d.Percentage != nil || d.Completed != nil)
}

func (s *ProgressService) load(studentID, topicID uint) (*model.StudentTopicProgress, bool, error) {
	progress, err := s.repo.Find(studentID, topicID)
	if err == nil {
		return progress, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return &model.StudentTopicProgress{
		StudentID:    studentID,
		TopicID:      topicID,
		Status:       model.ProgressNotStarted,
		LastAccessed: s.now(),
	}, true, nil
}

func (s *ProgressService) persist(progress *model.StudentTopicProgress, created bool) error {
	if created {
		return s.repo.Create(progress)
	}
	return s.repo.Save(progress)
}

// write loads (or starts) the record, applies fn and stores it. When a
// concurrent first update inserted the row in between, the update is replayed
// once on the stored row.
func (s *ProgressService) write(studentID, topicID uint, fn func(*model.StudentTopicProgress)) (*model.StudentTopicProgress, error) {
	for attempt := 0; ; attempt++ {
		progress, created, err := s.load(studentID, topicID)
		if err != nil {
			return nil, err
		}
		fn(progress)
		err = s.persist(progress, created)
		if created && attempt == 0 && errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return progress, nil
	}
}

// UpdateTopicProgress records a study session on a topic: it accumulates
// time, logs today's activity, applies lesson data and recomputes the rollup.
func (s *ProgressService) UpdateTopicProgress(studentID, topicID uint, timeSpent int64, data *LessonData) (*model.StudentTopicProgress, error) {
	if timeSpent < 0 {
		return nil, util.NewError(util.ErrValidation, "timeSpent must not be negative")
	}
	if data.hasScore() && strings.TrimSpace(data.LessonID) == "" && strings.TrimSpace(data.Title) == "" {
		return nil, util.NewError(util.ErrValidation, "lessonid or title is required with lesson scores")
	}

	return s.write(studentID, topicID, func(progress *model.StudentTopicProgress) {
		now := s.now()
		progress.LastAccessed = now
		progress.TimeSpent += timeSpent
		logDay(progress, now, timeSpent)

		if data != nil {
			if data.LessonIndex != nil {
				progress.CurrentLessonIndex = *data.LessonIndex
			}
			if data.SubheadingIndex != nil {
				progress.CurrentSubheadingIndex = *data.SubheadingIndex
			}
			if data.LessonID != "" {
				progress.CurrentLessonID = data.LessonID
			}
			if data.hasScore() {
				upsertLesson(progress, data)
			}
		}

		progress.MinimumTimeRequirementMet = distinctDays(progress.DailyLogs) >= model.MinimumDistinctDays
		recompute(progress, now)
	})
}

// UpdateLessonProgress moves the reading position without scoring.
func (s *ProgressService) UpdateLessonProgress(studentID, topicID uint, lessonIndex, subheadingIndex int, lessonID string) (*model.StudentTopicProgress, error) {
	if lessonIndex < 0 || subheadingIndex < 0 {
		return nil, util.NewError(util.ErrValidation, "lesson indexes must not be negative")
	}
	return s.write(studentID, topicID, func(progress *model.StudentTopicProgress) {
		now := s.now()
		progress.CurrentLessonIndex = lessonIndex
		progress.CurrentSubheadingIndex = subheadingIndex
		if lessonID != "" {
			progress.CurrentLessonID = lessonID
		}
		progress.LastAccessed = now
		recompute(progress, now)
	})
}

// CompleteTopic marks a topic finished once it was studied on enough distinct
// days and no lesson entry is left incomplete.
func (s *ProgressService) CompleteTopic(studentID, topicID uint) (*model.StudentTopicProgress, error) {
	progress, err := s.repo.Find(studentID, topicID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrProgressNotFound)
	}
	if !progress.MinimumTimeRequirementMet {
		return nil, util.ErrMinimumDaysNotMet
	}
	for _, l := range progress.Lessons {
		if !l.Completed {
			return nil, util.NewError(util.ErrValidation, "All lessons must be completed")
		}
	}

	now := s.now()
	progress.Status = model.ProgressCompleted
	if progress.CompletedAt == nil {
		progress.CompletedAt = &now
	}
	if progress.StartedAt == nil {
		progress.StartedAt = &now
	}
	progress.LastAccessed = now

	if err := s.repo.Save(progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// GetTopicProgress returns an unsaved not_started view when the student never
// opened the topic.
func (s *ProgressService) GetTopicProgress(studentID, topicID uint) (*model.StudentTopicProgress, error) {
	progress, err := s.repo.Find(studentID, topicID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.StudentTopicProgress{
			StudentID: studentID,
			TopicID:   topicID,
			Status:    model.ProgressNotStarted,
			Lessons:   []model.LessonProgress{},
			DailyLogs: []model.DailyLog{},
		}, nil
	}
	return progress, err
}

func (s *ProgressService) ListAll(studentID uint) ([]model.StudentTopicProgress, error) {
	return s.repo.ListByStudent(studentID, "")
}

func (s *ProgressService) ListCompleted(studentID uint) ([]model.StudentTopicProgress, error) {
	return s.repo.ListByStudent(studentID, model.ProgressCompleted)
}

func (s *ProgressService) ListInProgress(studentID uint) ([]model.StudentTopicProgress, error) {
	return s.repo.ListByStudent(studentID, model.ProgressInProgress)
}

func (s *ProgressService) ResetTopicProgress(studentID, topicID uint) error {
	n, err := s.repo.Delete(studentID, topicID)
	if err != nil {
		return err
	}
	if n == 0 {
		return util.ErrProgressNotFound
	}
	return nil
}

// CheckAndResetStaleProgress deletes unfinished records nobody touched for the
// stale window and that never met the minimum study days.
func (s *ProgressService) CheckAndResetStaleProgress() (int64, error) {
	return s.repo.DeleteStale(s.now().Add(-s.staleAfter))
}

func logDay(progress *model.StudentTopicProgress, now time.Time, timeSpent int64) {
	today := now.Format(util.DateFormat)
	for i := range progress.DailyLogs {
		if progress.DailyLogs[i].Date == today {
			progress.DailyLogs[i].TimeSpent += timeSpent
			return
		}
	}
	progress.DailyLogs = append(progress.DailyLogs, model.DailyLog{Date: today, TimeSpent: timeSpent})
}

func distinctDays(logs []model.DailyLog) int {
	days := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		days[l.Date] = struct{}{}
	}
	return len(days)
}

// upsertLesson matches by lesson id first and falls back to the title. Only
// the fields present in data are written on an existing entry.
func upsertLesson(progress *model.StudentTopicProgress, data *LessonData) {
	idx := -1
	if data.LessonID != "" {
		for i, l := range progress.Lessons {
			if l.LessonID == data.LessonID {
				idx = i
				break
			}
		}
	}
	if idx < 0 && data.Title != "" {
		for i, l := range progress.Lessons {
			if l.Title == data.Title {
				idx = i
				break
			}
		}
	}

	if idx < 0 {
		entry := model.LessonProgress{LessonID: data.LessonID, Title: data.Title}
		if data.TotalGot != nil {
			entry.TotalGot = math.Max(0, *data.TotalGot)
		}
		if data.Percentage != nil {
			entry.Percentage = clampPercentage(*data.Percentage)
		}
		if data.Completed != nil {
			entry.Completed = *data.Completed
		}
		progress.Lessons = append(progress.Lessons, entry)
		return
	}

	entry := &progress.Lessons[idx]
	if data.LessonID != "" {
		entry.LessonID = data.LessonID
	}
	if data.Title != "" {
		entry.Title = data.Title
	}
	if data.TotalGot != nil {
		entry.TotalGot = math.Max(0, *data.TotalGot)
	}
	if data.Percentage != nil {
		entry.Percentage = clampPercentage(*data.Percentage)
	}
	if data.Completed != nil {
		entry.Completed = *data.Completed
	}
}

// recompute derives the rollup and status from the lesson entries.
func recompute(progress *model.StudentTopicProgress, now time.Time) {
	var total, pctSum float64
	allCompleted := len(progress.Lessons) > 0
	touched := progress.TimeSpent > 0 || progress.CurrentLessonIndex > 0 || progress.CurrentSubheadingIndex > 0
	for _, l := range progress.Lessons {
		total += l.TotalGot
		pctSum += l.Percentage
		if !l.Completed {
			allCompleted = false
		}
		if l.Percentage > 0 || l.TotalGot > 0 || l.Completed {
			touched = true
		}
	}

	progress.OverallTotalGot = math.Floor(total)
	if n := len(progress.Lessons); n > 0 {
		progress.OverallPercentage = round2(clampPercentage(pctSum / float64(n)))
	} else {
		progress.OverallPercentage = 0
	}

	// a topic completed by hand with no lesson entries stays completed until
	// an incomplete lesson shows up
	manuallyCompleted := len(progress.Lessons) == 0 && progress.Status == model.ProgressCompleted

	switch {
	case allCompleted || manuallyCompleted:
		progress.Status = model.ProgressCompleted
		if progress.CompletedAt == nil {
			progress.CompletedAt = &now
		}
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
	case touched:
		progress.Status = model.ProgressInProgress
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
		progress.CompletedAt = nil
	default:
		progress.Status = model.ProgressNotStarted
		progress.CompletedAt = nil
	}
}
