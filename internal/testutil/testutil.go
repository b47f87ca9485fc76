// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/pkg/database"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

// NewDB opens a private in-memory SQLite database with every table migrated.
// A single connection keeps the database alive and transactions serialized.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateStudent(t *testing.T, db *gorm.DB, email string) *model.Student {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	student := &model.Student{
		FirstName:          "Tariro",
		LastName:           "Moyo",
		Email:              email,
		PhoneNumber:        "+263771000000",
		Password:           string(hash),
		Level:              model.LevelOLevel,
		SubscriptionStatus: model.SubscriptionPending,
	}
	require.NoError(t, db.Create(student).Error)
	return student
}

func CreateAdmin(t *testing.T, db *gorm.DB, email string, role model.UserRole) *model.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &model.Admin{
		FirstName: "Rudo",
		LastName:  "Chikwanha",
		Email:     email,
		Password:  string(hash),
		Role:      role,
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

func CreateSubject(t *testing.T, db *gorm.DB, name string) *model.Subject {
	t.Helper()
	subject := &model.Subject{SubjectName: name, Level: model.LevelOLevel, ShowSubject: true}
	require.NoError(t, db.Create(subject).Error)
	return subject
}

func CreateTopic(t *testing.T, db *gorm.DB, subjectID uint, title string) *model.Topic {
	t.Helper()
	topic := &model.Topic{Title: title, SubjectID: subjectID, ShowTopic: true}
	require.NoError(t, db.Create(topic).Error)
	return topic
}

// CreateContent stores a topic content with one lesson per id.
func CreateContent(t *testing.T, db *gorm.DB, topicID uint, lessonIDs ...string) *model.TopicContent {
	t.Helper()
	lessons := make([]model.Lesson, 0, len(lessonIDs))
	for _, id := range lessonIDs {
		lessons = append(lessons, model.Lesson{ID: id, Text: "lesson " + id})
	}
	content := &model.TopicContent{
		Title:     "Content",
		TopicID:   topicID,
		Lessons:   lessons,
		FilePaths: []string{},
	}
	require.NoError(t, db.Create(content).Error)
	return content
}
