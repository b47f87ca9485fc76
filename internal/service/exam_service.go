package service

import (
	"fmt"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"strings"
)

type ExamService struct {
	exams    *repository.ExamRepository
	records  *repository.RecordExamRepository
	subjects *repository.SubjectRepository
	topics   *repository.TopicRepository
	students *repository.StudentRepository
}

func NewExamService(exams *repository.ExamRepository, records *repository.RecordExamRepository, subjects *repository.SubjectRepository, topics *repository.TopicRepository, students *repository.StudentRepository) *ExamService {
	return &ExamService{exams: exams, records: records, subjects: subjects, topics: topics, students: students}
}

type ExamRequest struct {
	SubjectID         uint                 `json:"subjectId" binding:"required"`
	TopicID           *uint                `json:"topicId"`
	Level             model.StudentLevel   `json:"level"`
	Title             string               `json:"title" binding:"required"`
	DurationInMinutes int                  `json:"durationInMinutes" binding:"required"`
	Questions         []model.ExamQuestion `json:"questions"`
	IsPublished       *bool                `json:"isPublished"`
}

func (s *ExamService) validate(req ExamRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return util.NewError(util.ErrValidation, "Title is required")
	}
	if req.DurationInMinutes <= 0 {
		return util.NewError(util.ErrValidation, "Duration must be greater than zero")
	}
	if req.Level != "" && !req.Level.Valid() {
		return util.NewError(util.ErrValidation, "Invalid level")
	}
	for i, q := range req.Questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			return util.NewError(util.ErrValidation, "Question text is required")
		}
		if len(q.Options) > 0 && !containsString(q.Options, q.CorrectAnswer) {
			return util.NewError(util.ErrValidation, fmt.Sprintf("Correct answer of question %d is not among its options", i+1))
		}
	}
	if _, err := s.subjects.FindByID(req.SubjectID); err != nil {
		return mapNotFound(err, util.ErrSubjectNotFound)
	}
	if req.TopicID != nil {
		topic, err := s.topics.FindByID(*req.TopicID)
		if err != nil {
			return mapNotFound(err, util.ErrTopicNotFound)
		}
		if topic.SubjectID != req.SubjectID {
			return util.NewError(util.ErrValidation, "Topic does not belong to the subject")
		}
	}
	return nil
}

func (s *ExamService) CreateExam(req ExamRequest) (*model.Exam, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	exam := &model.Exam{
		SubjectID:         req.SubjectID,
		TopicID:           req.TopicID,
		Level:             req.Level,
		Title:             strings.TrimSpace(req.Title),
		DurationInMinutes: req.DurationInMinutes,
		Questions:         req.Questions,
		IsPublished:       boolOr(req.IsPublished, false),
	}
	if err := s.exams.Create(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) GetExam(id uint) (*model.Exam, error) {
	exam, err := s.exams.FindByID(id)
	return exam, mapNotFound(err, util.ErrExamNotFound)
}

func (s *ExamService) ListExams(filter repository.ExamFilter) ([]model.Exam, error) {
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	return s.exams.List(filter)
}

func (s *ExamService) UpdateExam(id uint, req ExamRequest) (*model.Exam, error) {
	exam, err := s.GetExam(id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	exam.SubjectID = req.SubjectID
	exam.TopicID = req.TopicID
	exam.Level = req.Level
	exam.Title = strings.TrimSpace(req.Title)
	exam.DurationInMinutes = req.DurationInMinutes
	exam.Questions = req.Questions
	exam.IsPublished = boolOr(req.IsPublished, exam.IsPublished)
	if err := s.exams.Save(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// TogglePublish flips the published flag and returns the exam.
func (s *ExamService) TogglePublish(id uint) (*model.Exam, error) {
	exam, err := s.GetExam(id)
	if err != nil {
		return nil, err
	}
	exam.IsPublished = !exam.IsPublished
	if err := s.exams.Save(exam); err != nil {
		return nil, err
	}
	return exam, nil
}

func (s *ExamService) DeleteExam(id uint) error {
	if _, err := s.GetExam(id); err != nil {
		return err
	}
	return s.exams.Delete(id)
}

// RecordResult stores a result the client already scored.
func (s *ExamService) RecordResult(studentID, examID uint, percentage float64) (*model.RecordExam, error) {
	if percentage < 0 || percentage > 100 {
		return nil, util.NewError(util.ErrValidation, "Percentage must be between 0 and 100")
	}
	if _, err := s.students.FindByID(studentID); err != nil {
		return nil, mapNotFound(err, util.ErrStudentNotFound)
	}
	exam, err := s.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsPublished {
		return nil, util.NewError(util.ErrValidation, "Exam is not published")
	}
	record := &model.RecordExam{StudentID: studentID, ExamID: examID, Percentage: round2(percentage)}
	if err := s.records.Create(record); err != nil {
		return nil, err
	}
	return s.GetRecord(record.ID)
}

// SubmitAnswers scores answers against the exam, one answer per question in
// order, and records the result. Answers are compared case-insensitively.
func (s *ExamService) SubmitAnswers(studentID, examID uint, answers []string) (*model.RecordExam, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return nil, err
	}
	if len(exam.Questions) == 0 {
		return nil, util.NewError(util.ErrValidation, "Exam has no questions")
	}
	return s.RecordResult(studentID, examID, scoreExam(exam.Questions, answers))
}

func scoreExam(questions []model.ExamQuestion, answers []string) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for i, q := range questions {
		if i < len(answers) && strings.EqualFold(strings.TrimSpace(answers[i]), strings.TrimSpace(q.CorrectAnswer)) {
			correct++
		}
	}
	return round2(float64(correct) * 100 / float64(len(questions)))
}

func (s *ExamService) GetRecord(id uint) (*model.RecordExam, error) {
	record, err := s.records.FindByID(id)
	return record, mapNotFound(err, util.ErrRecordNotFound)
}

func (s *ExamService) RecordsByStudent(studentID uint) ([]model.RecordExam, error) {
	return s.records.FindByStudent(studentID)
}

func (s *ExamService) RecordsByExam(examID uint) ([]model.RecordExam, error) {
	if _, err := s.GetExam(examID); err != nil {
		return nil, err
	}
	return s.records.FindByExam(examID)
}

func (s *ExamService) LatestRecords(limit int) ([]model.RecordExam, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.records.Latest(limit)
}

// TopRecords returns the best results, for one exam when examID is set.
func (s *ExamService) TopRecords(examID uint, limit int) ([]model.RecordExam, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.records.Top(examID, limit)
}

func (s *ExamService) DeleteRecord(id uint) error {
	if _, err := s.GetRecord(id); err != nil {
		return err
	}
	return s.records.Delete(id)
}
