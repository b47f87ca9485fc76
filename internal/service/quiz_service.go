package service

import (
	"errors"
	"fmt"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizService manages the end-of-lesson quizzes. Trash and restore work per
// quiz, per topic content and per (content, lesson); purge is a hard delete
// of trashed rows.
type QuizService struct {
	repo     *repository.QuizRepository
	contents *repository.TopicContentRepository
}

func NewQuizService(repo *repository.QuizRepository, contents *repository.TopicContentRepository) *QuizService {
	return &QuizService{repo: repo, contents: contents}
}

type QuizRequest struct {
	TopicContentID uint                 `json:"topicContentId" binding:"required"`
	LessonID       string               `json:"lessonId" binding:"required"`
	Questions      []model.QuizQuestion `json:"questions"`
}

func validateQuizQuestions(questions []model.QuizQuestion) error {
	if len(questions) == 0 {
		return util.NewError(util.ErrValidation, "At least one question is required")
	}
	for i, q := range questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			return util.NewError(util.ErrValidation, fmt.Sprintf("Question %d has no text", i+1))
		}
		switch q.Type {
		case model.QuizOpenEnded:
		case model.QuizMultipleChoice:
			if len(q.Options) < 2 {
				return util.NewError(util.ErrValidation, fmt.Sprintf("Question %d needs at least two options", i+1))
			}
			if !containsString(q.Options, q.CorrectAnswer) {
				return util.NewError(util.ErrValidation, fmt.Sprintf("Correct answer of question %d is not among its options", i+1))
			}
		default:
			return util.NewError(util.ErrValidation, fmt.Sprintf("Question %d has an invalid type", i+1))
		}
	}
	return nil
}

// UpsertQuiz creates the quiz for (content, lesson) or replaces its
// questions. Writing to a trashed quiz brings it back to active.
func (s *QuizService) UpsertQuiz(req QuizRequest) (*model.Quiz, bool, error) {
	if err := validateQuizQuestions(req.Questions); err != nil {
		return nil, false, err
	}
	content, err := s.contents.FindByID(req.TopicContentID)
	if err != nil {
		return nil, false, mapNotFound(err, util.ErrTopicContentNotFound)
	}
	if !hasLesson(content, req.LessonID) {
		return nil, false, util.NewError(util.ErrValidation, "Lesson does not exist in this topic content")
	}

	quiz, err := s.repo.FindByLesson(req.TopicContentID, req.LessonID)
	switch {
	case err == nil:
		quiz.Questions = req.Questions
		if quiz.Lifecycle != model.LifecycleActive {
			now := time.Now()
			quiz.Lifecycle = model.LifecycleActive
			quiz.LifecycleChangedAt = &now
		}
		if err := s.repo.Save(quiz); err != nil {
			return nil, false, err
		}
		return quiz, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		quiz = &model.Quiz{
			TopicContentID: req.TopicContentID,
			LessonID:       req.LessonID,
			Questions:      req.Questions,
			Lifecycle:      model.LifecycleActive,
		}
		if err := s.repo.Create(quiz); err != nil {
			return nil, false, mapDuplicate(err, util.NewError(util.ErrConflict, "Quiz was created concurrently, retry the request"))
		}
		return quiz, true, nil
	default:
		return nil, false, err
	}
}

func hasLesson(content *model.TopicContent, lessonID string) bool {
	for _, l := range content.Lessons {
		if l.ID == lessonID {
			return true
		}
	}
	return false
}

func (s *QuizService) GetQuiz(id uint) (*model.Quiz, error) {
	quiz, err := s.repo.FindByID(id)
	return quiz, mapNotFound(err, util.ErrQuizNotFound)
}

// QuizForLesson returns the active quiz of a lesson.
func (s *QuizService) QuizForLesson(contentID uint, lessonID string) (*model.Quiz, error) {
	quiz, err := s.repo.FindByLesson(contentID, lessonID)
	if err != nil {
		return nil, mapNotFound(err, util.ErrQuizNotFound)
	}
	if quiz.Lifecycle != model.LifecycleActive {
		return nil, util.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes(state model.Lifecycle, contentID uint) ([]model.Quiz, error) {
	if state == "" {
		state = model.LifecycleActive
	}
	if state == model.LifecyclePurged || !state.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid lifecycle filter")
	}
	return s.repo.List(state, contentID)
}

// MoveQuiz moves a single quiz. Moving to purged deletes the row.
func (s *QuizService) MoveQuiz(id uint, to model.Lifecycle) (*model.Quiz, error) {
	quiz, err := s.GetQuiz(id)
	if err != nil {
		return nil, err
	}
	if !quiz.Lifecycle.CanMoveTo(to) {
		return nil, util.ErrInvalidTransition
	}
	if to == model.LifecyclePurged {
		if _, err := s.repo.Purge(byQuizID(id)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if _, err := s.repo.SetLifecycle(byQuizID(id), quiz.Lifecycle, to); err != nil {
		return nil, err
	}
	return s.GetQuiz(id)
}

func byQuizID(id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("id = ?", id) }
}

func byContent(contentID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("topic_content_id = ?", contentID) }
}

func byContentLesson(contentID uint, lessonID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("topic_content_id = ? AND lesson_id = ?", contentID, lessonID)
	}
}

// TrashByContent trashes every active quiz of a topic content. An empty
// lessonID widens the scope to the whole content.
func (s *QuizService) TrashByContent(contentID uint, lessonID string) (int64, error) {
	return s.bulkMove(contentID, lessonID, model.LifecycleActive, model.LifecycleTrashed)
}

func (s *QuizService) RestoreByContent(contentID uint, lessonID string) (int64, error) {
	return s.bulkMove(contentID, lessonID, model.LifecycleTrashed, model.LifecycleActive)
}

func (s *QuizService) bulkMove(contentID uint, lessonID string, from, to model.Lifecycle) (int64, error) {
	if contentID == 0 {
		return 0, util.NewError(util.ErrValidation, "topicContentId is required")
	}
	scope := byContent(contentID)
	if lessonID != "" {
		scope = byContentLesson(contentID, lessonID)
	}
	n, err := s.repo.SetLifecycle(scope, from, to)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, util.ErrQuizNotFound
	}
	logger.Log.Info("quiz lifecycle moved",
		zap.Uint("topicContentId", contentID),
		zap.String("lessonId", lessonID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("count", n),
	)
	return n, nil
}

// PurgeTrashed hard-deletes trashed quizzes, all of them when contentID is 0.
func (s *QuizService) PurgeTrashed(contentID uint) (int64, error) {
	scope := model.TrashedOnly
	if contentID != 0 {
		scope = func(db *gorm.DB) *gorm.DB {
			return model.TrashedOnly(db).Where("topic_content_id = ?", contentID)
		}
	}
	n, err := s.repo.Purge(scope)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("trashed quizzes purged", zap.Uint("topicContentId", contentID), zap.Int64("count", n))
	return n, nil
}

func (s *QuizService) Counts() (map[model.Lifecycle]int64, error) {
	return s.repo.CountByLifecycle()
}
