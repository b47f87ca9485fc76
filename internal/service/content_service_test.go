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

type contentFixture struct {
	db      *gorm.DB
	svc     *ContentService
	topic   *model.Topic
	content *model.TopicContent
	author  *model.Student
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	db := testutil.NewDB(t)
	svc := NewContentService(
		repository.NewTopicContentRepository(db),
		repository.NewTopicRepository(db),
		repository.NewCommentRepository(db),
		repository.NewReactionRepository(db),
		newLocalStorage(t),
	)
	subject := testutil.CreateSubject(t, db, "Chemistry")
	topic := testutil.CreateTopic(t, db, subject.ID, "Acids")
	return &contentFixture{
		db:      db,
		svc:     svc,
		topic:   topic,
		content: testutil.CreateContent(t, db, topic.ID, "l1"),
		author:  testutil.CreateStudent(t, db, "author@example.com"),
	}
}

func TestCreateContentAssignsLessonIDs(t *testing.T) {
	f := newContentFixture(t)

	_, err := f.svc.CreateContent(TopicContentRequest{Title: "Bases", TopicID: 999})
	assert.ErrorIs(t, err, util.ErrTopicNotFound)
	_, err = f.svc.CreateContent(TopicContentRequest{Title: "Bases", TopicID: f.topic.ID, FileType: "hologram"})
	assert.ErrorIs(t, err, util.ErrValidation)

	content, err := f.svc.CreateContent(TopicContentRequest{
		Title:   " Bases ",
		TopicID: f.topic.ID,
		Lessons: []model.Lesson{{ID: "keep", Text: "one"}, {Text: "two"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bases", content.Title)
	require.Len(t, content.Lessons, 2)
	assert.Equal(t, "keep", content.Lessons[0].ID)
	assert.NotEmpty(t, content.Lessons[1].ID)
	assert.NotNil(t, content.FilePaths)

	// lesson ids survive an edit that leaves the lessons alone
	updated, err := f.svc.UpdateContent(content.ID, TopicContentRequest{Title: "Bases II", TopicID: f.topic.ID})
	require.NoError(t, err)
	assert.Equal(t, content.Lessons[1].ID, updated.Lessons[1].ID)
}

func TestCommentLifecycle(t *testing.T) {
	f := newContentFixture(t)
	other := testutil.CreateStudent(t, f.db, "other@example.com")

	_, err := f.svc.AddComment(f.content.ID, f.author.ID, "   ")
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.AddComment(999, f.author.ID, "hello")
	assert.ErrorIs(t, err, util.ErrTopicContentNotFound)

	c, err := f.svc.AddComment(f.content.ID, f.author.ID, " Great lesson ")
	require.NoError(t, err)
	assert.Equal(t, "Great lesson", c.Body)
	assert.Equal(t, model.LifecycleActive, c.Lifecycle)

	_, err = f.svc.EditComment(c.ID, other.ID, "mine now")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	edited, err := f.svc.EditComment(c.ID, f.author.ID, "Great lesson, thanks")
	require.NoError(t, err)
	assert.Equal(t, "Great lesson, thanks", edited.Body)

	_, err = f.svc.MoveComment(c.ID, other.ID, model.LifecycleTrashed)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
	moved, err := f.svc.MoveComment(c.ID, f.author.ID, model.LifecycleTrashed)
	require.NoError(t, err)
	assert.Equal(t, model.LifecycleTrashed, moved.Lifecycle)

	active, err := f.svc.Comments(f.content.ID, "")
	require.NoError(t, err)
	assert.Empty(t, active)
	trashed, err := f.svc.Comments(f.content.ID, model.LifecycleTrashed)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	require.NotNil(t, trashed[0].Student)
	assert.Equal(t, f.author.Email, trashed[0].Student.Email)

	_, err = f.svc.EditComment(c.ID, f.author.ID, "edit while trashed")
	assert.ErrorIs(t, err, util.ErrCommentNotFound)
	_, err = f.svc.MoveComment(c.ID, 0, model.LifecycleTrashed)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)

	_, err = f.svc.Comments(f.content.ID, model.LifecyclePurged)
	assert.ErrorIs(t, err, util.ErrValidation)

	// admins purge anyone's comment and the row is gone
	purged, err := f.svc.MoveComment(c.ID, 0, model.LifecyclePurged)
	require.NoError(t, err)
	assert.Nil(t, purged)
	_, err = f.svc.MoveComment(c.ID, 0, model.LifecycleActive)
	assert.ErrorIs(t, err, util.ErrCommentNotFound)
}

func TestReactions(t *testing.T) {
	f := newContentFixture(t)
	other := testutil.CreateStudent(t, f.db, "fan@example.com")

	_, err := f.svc.React(f.content.ID, f.author.ID, "meh")
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.React(999, f.author.ID, model.ReactionLike)
	assert.ErrorIs(t, err, util.ErrTopicContentNotFound)

	_, err = f.svc.React(f.content.ID, f.author.ID, model.ReactionLike)
	require.NoError(t, err)
	summary, err := f.svc.React(f.content.ID, other.ID, model.ReactionLike)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Total)

	// reacting again replaces the earlier reaction
	summary, err = f.svc.React(f.content.ID, other.ID, model.ReactionConfused)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.Total)
	counts := map[model.ReactionType]int64{}
	for _, c := range summary.Counts {
		counts[c.Type] = c.Count
	}
	assert.Equal(t, map[model.ReactionType]int64{model.ReactionLike: 1, model.ReactionConfused: 1}, counts)

	summary, err = f.svc.Unreact(f.content.ID, f.author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Total)
	summary, err = f.svc.Unreact(f.content.ID, f.author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.Total)
}
