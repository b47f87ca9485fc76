package repository

import (
	"learning_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) Create(exam *model.Exam) error {
	return r.DB.Create(exam).Error
}

func (r *ExamRepository) Save(exam *model.Exam) error {
	return r.DB.Save(exam).Error
}

func (r *ExamRepository) FindByID(id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

type ExamFilter struct {
	SubjectID     uint
	TopicID       uint
	Level         model.StudentLevel
	PublishedOnly bool
}

func (r *ExamRepository) List(f ExamFilter) ([]model.Exam, error) {
	var exams []model.Exam
	query := r.DB.Model(&model.Exam{})
	if f.SubjectID != 0 {
		query = query.Where("subject_id = ?", f.SubjectID)
	}
	if f.TopicID != 0 {
		query = query.Where("topic_id = ?", f.TopicID)
	}
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	err := query.Order("created_at DESC").Find(&exams).Error
	return exams, err
}

func (r *ExamRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", id).Delete(&model.RecordExam{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Exam{}, id).Error
	})
}

type RecordExamRepository struct {
	DB *gorm.DB
}

func NewRecordExamRepository(db *gorm.DB) *RecordExamRepository {
	return &RecordExamRepository{DB: db}
}

func (r *RecordExamRepository) Create(record *model.RecordExam) error {
	return r.DB.Create(record).Error
}

func (r *RecordExamRepository) FindByID(id uint) (*model.RecordExam, error) {
	var record model.RecordExam
	if err := r.DB.Preload("Exam").Preload("Student").First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RecordExamRepository) FindByStudent(studentID uint) ([]model.RecordExam, error) {
	var records []model.RecordExam
	err := r.DB.Preload("Exam").Where("student_id = ?", studentID).Order("created_at DESC").Find(&records).Error
	return records, err
}

func (r *RecordExamRepository) FindByExam(examID uint) ([]model.RecordExam, error) {
	var records []model.RecordExam
	err := r.DB.Preload("Student").Where("exam_id = ?", examID).Order("percentage DESC").Find(&records).Error
	return records, err
}

func (r *RecordExamRepository) Latest(limit int) ([]model.RecordExam, error) {
	var records []model.RecordExam
	err := r.DB.Preload("Exam").Preload("Student").Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Top returns the best results, optionally for a single exam.
func (r *RecordExamRepository) Top(examID uint, limit int) ([]model.RecordExam, error) {
	var records []model.RecordExam
	query := r.DB.Preload("Exam").Preload("Student")
	if examID != 0 {
		query = query.Where("exam_id = ?", examID)
	}
	err := query.Order("percentage DESC, created_at ASC").Limit(limit).Find(&records).Error
	return records, err
}

func (r *RecordExamRepository) Delete(id uint) error {
	return r.DB.Delete(&model.RecordExam{}, id).Error
}

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) Save(quiz *model.Quiz) error {
	return r.DB.Save(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

// FindByLesson ignores lifecycle, since the (content, lesson) pair is unique
// across all states.
func (r *QuizRepository) FindByLesson(contentID uint, lessonID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Where("topic_content_id = ? AND lesson_id = ?", contentID, lessonID).First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) List(state model.Lifecycle, contentID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	query := r.DB.Where("lifecycle = ?", state)
	if contentID != 0 {
		query = query.Where("topic_content_id = ?", contentID)
	}
	err := query.Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}

// SetLifecycle moves every quiz matching scope from one state to another and
// returns how many rows changed.
func (r *QuizRepository) SetLifecycle(scope func(*gorm.DB) *gorm.DB, from, to model.Lifecycle) (int64, error) {
	res := r.DB.Model(&model.Quiz{}).
		Scopes(scope).
		Where("lifecycle = ?", from).
		Updates(map[string]interface{}{
			"lifecycle":            to,
			"lifecycle_changed_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *QuizRepository) Purge(scope func(*gorm.DB) *gorm.DB) (int64, error) {
	res := r.DB.Scopes(scope).Delete(&model.Quiz{})
	return res.RowsAffected, res.Error
}

func (r *QuizRepository) CountByLifecycle() (map[model.Lifecycle]int64, error) {
	var rows []struct {
		Lifecycle model.Lifecycle
		Count     int64
	}
	if err := r.DB.Model(&model.Quiz{}).
		Select("lifecycle, COUNT(*) AS count").
		Group("lifecycle").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[model.Lifecycle]int64{
		model.LifecycleActive:  0,
		model.LifecycleTrashed: 0,
	}
	for _, row := range rows {
		counts[row.Lifecycle] = row.Count
	}
	return counts, nil
}

type LibraryRepository struct {
	DB *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) *LibraryRepository {
	return &LibraryRepository{DB: db}
}

func (r *LibraryRepository) Create(book *model.LibraryBook) error {
	return r.DB.Create(book).Error
}

func (r *LibraryRepository) Save(book *model.LibraryBook) error {
	return r.DB.Save(book).Error
}

func (r *LibraryRepository) FindByID(id uint) (*model.LibraryBook, error) {
	var book model.LibraryBook
	if err := r.DB.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *LibraryRepository) List(subjectID uint, level model.StudentLevel, visibleOnly bool) ([]model.LibraryBook, error) {
	var books []model.LibraryBook
	query := r.DB.Model(&model.LibraryBook{})
	if subjectID != 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if visibleOnly {
		query = query.Where("show_book = ?", true)
	}
	err := query.Order("created_at DESC").Find(&books).Error
	return books, err
}

func (r *LibraryRepository) Popular(limit int) ([]model.LibraryBook, error) {
	var books []model.LibraryBook
	err := r.DB.Where("show_book = ?", true).Order("likes DESC, created_at DESC").Limit(limit).Find(&books).Error
	return books, err
}

// ToggleLike flips the student's like and keeps the denormalized counter in
// step within one transaction. It returns the new liked state.
func (r *LibraryRepository) ToggleLike(bookID, studentID uint) (bool, error) {
	liked := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("book_id = ? AND student_id = ?", bookID, studentID).Delete(&model.BookLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Model(&model.LibraryBook{}).Where("id = ? AND likes > 0", bookID).
				Update("likes", gorm.Expr("likes - 1")).Error
		}
		if err := tx.Create(&model.BookLike{BookID: bookID, StudentID: studentID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&model.LibraryBook{}).Where("id = ?", bookID).
			Update("likes", gorm.Expr("likes + 1")).Error
	})
	return liked, err
}

func (r *LibraryRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&model.BookLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.LibraryBook{}, id).Error
	})
}
