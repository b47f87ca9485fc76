package service

import (
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalogService(t *testing.T) (*gorm.DB, *CatalogService) {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewCatalogService(
		repository.NewSubjectRepository(db),
		repository.NewTopicRepository(db),
		repository.NewBannerRepository(db),
		newLocalStorage(t),
	)
	return db, svc
}

func TestSubjectsAndTopics(t *testing.T) {
	_, svc := newCatalogService(t)

	_, err := svc.CreateSubject(SubjectRequest{SubjectName: "Physics", Level: "Grade 7"})
	assert.ErrorIs(t, err, util.ErrValidation)

	physics, err := svc.CreateSubject(SubjectRequest{SubjectName: "  Physics ", Level: model.LevelALevel})
	require.NoError(t, err)
	assert.Equal(t, "Physics", physics.SubjectName)
	assert.True(t, physics.ShowSubject)

	_, err = svc.CreateSubject(SubjectRequest{SubjectName: "Biology", Level: model.LevelALevel, ShowSubject: ptr(false)})
	require.NoError(t, err)

	visible, err := svc.ListSubjects(model.LevelALevel, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, physics.ID, visible[0].ID)

	all, err := svc.ListSubjects("", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.CreateTopic(TopicRequest{Title: "Optics", SubjectID: 999})
	assert.ErrorIs(t, err, util.ErrSubjectNotFound)

	_, err = svc.CreateTopic(TopicRequest{Title: "Optics", SubjectID: physics.ID, Price: ptr(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, util.ErrValidation)

	topic, err := svc.CreateTopic(TopicRequest{Title: "Optics", SubjectID: physics.ID, Price: ptr(decimal.RequireFromString("4.50"))})
	require.NoError(t, err)
	assert.True(t, topic.Price.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, topic.RegularPrice.IsZero())
	require.NotNil(t, topic.Subject)
	assert.Equal(t, "Physics", topic.Subject.SubjectName)

	_, err = svc.CreateTopic(TopicRequest{Title: "Hidden", SubjectID: physics.ID, ShowTopic: ptr(false)})
	require.NoError(t, err)

	shown, err := svc.TopicsBySubject(physics.ID, true)
	require.NoError(t, err)
	assert.Len(t, shown, 1)
	random, err := svc.RandomTopics(physics.ID)
	require.NoError(t, err)
	assert.Len(t, random, 1, "hidden topics are never sampled")

	assert.ErrorIs(t, svc.DeleteSubject(physics.ID), util.ErrConflict)
}

func TestBannerNeedsImage(t *testing.T) {
	_, svc := newCatalogService(t)

	_, err := svc.CreateBanner(t.Context(), BannerRequest{Title: "Exam season"}, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	banner, err := svc.CreateBanner(t.Context(), BannerRequest{Title: "Exam season", ImageURL: "/uploads/banners/exam.png"}, nil)
	require.NoError(t, err)

	_, err = svc.UpdateBanner(banner.ID, BannerRequest{ShowBanner: ptr(false)})
	require.NoError(t, err)
	visible, err := svc.ListBanners(true)
	require.NoError(t, err)
	assert.Empty(t, visible)

	require.NoError(t, svc.DeleteBanner(t.Context(), banner.ID))
	_, err = svc.GetBanner(banner.ID)
	assert.ErrorIs(t, err, util.ErrBannerNotFound)
}

func TestLibraryLikes(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewLibraryService(repository.NewLibraryRepository(db), newLocalStorage(t))
	alice := testutil.CreateStudent(t, db, "alice@example.com")
	bob := testutil.CreateStudent(t, db, "bob@example.com")

	_, err := svc.CreateBook(t.Context(), BookRequest{Title: "Bad level", Level: "Grade 7"}, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	algebra, err := svc.CreateBook(t.Context(), BookRequest{Title: "Algebra", Level: model.LevelOLevel}, nil)
	require.NoError(t, err)
	poetry, err := svc.CreateBook(t.Context(), BookRequest{Title: "Poetry"}, nil)
	require.NoError(t, err)
	hidden, err := svc.CreateBook(t.Context(), BookRequest{Title: "Drafts", ShowBook: ptr(false)}, nil)
	require.NoError(t, err)

	book, liked, err := svc.ToggleLike(poetry.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, book.Likes)

	_, _, err = svc.ToggleLike(poetry.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = svc.ToggleLike(algebra.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = svc.ToggleLike(hidden.ID, alice.ID)
	require.NoError(t, err)

	// a second toggle takes the like back
	book, liked, err = svc.ToggleLike(algebra.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, book.Likes)

	popular, err := svc.PopularBooks(0)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, poetry.ID, popular[0].ID)
	assert.Equal(t, 2, popular[0].Likes)

	_, _, err = svc.ToggleLike(999, alice.ID)
	assert.ErrorIs(t, err, util.ErrBookNotFound)

	require.NoError(t, svc.DeleteBook(t.Context(), poetry.ID))
	var likes int64
	require.NoError(t, db.Model(&model.BookLike{}).Where("book_id = ?", poetry.ID).Count(&likes).Error)
	assert.Zero(t, likes)
}
