package service

import (
	"context"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

type ContentService struct {
	contents  *repository.TopicContentRepository
	topics    *repository.TopicRepository
	comments  *repository.CommentRepository
	reactions *repository.ReactionRepository
	storage   *StorageService
}

func NewContentService(contents *repository.TopicContentRepository, topics *repository.TopicRepository, comments *repository.CommentRepository, reactions *repository.ReactionRepository, storage *StorageService) *ContentService {
	return &ContentService{
		contents:  contents,
		topics:    topics,
		comments:  comments,
		reactions: reactions,
		storage:   storage,
	}
}

type TopicContentRequest struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	TopicID     uint                  `json:"topicId" binding:"required"`
	Lessons     []model.Lesson        `json:"lessons"`
	FilePaths   []string              `json:"filePaths"`
	FileType    model.ContentFileType `json:"fileType"`
}

// normalizeLessons gives every lesson a stable id, so progress and quizzes
// can refer to it after edits reorder the list.
func normalizeLessons(lessons []model.Lesson) []model.Lesson {
	out := make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if strings.TrimSpace(l.ID) == "" {
			l.ID = uuid.NewString()
		}
		out = append(out, l)
	}
	return out
}

func validFileType(t model.ContentFileType) bool {
	switch t {
	case "", model.FileTypeVideo, model.FileTypeAudio, model.FileTypeDocument:
		return true
	}
	return false
}

func (s *ContentService) CreateContent(req TopicContentRequest) (*model.TopicContent, error) {
	if _, err := s.topics.FindByID(req.TopicID); err != nil {
		return nil, mapNotFound(err, util.ErrTopicNotFound)
	}
	if !validFileType(req.FileType) {
		return nil, util.NewError(util.ErrValidation, "Invalid file type")
	}
	paths := req.FilePaths
	if paths == nil {
		paths = []string{}
	}
	content := &model.TopicContent{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TopicID:     req.TopicID,
		Lessons:     normalizeLessons(req.Lessons),
		FilePaths:   paths,
		FileType:    req.FileType,
	}
	if err := s.contents.Create(content); err != nil {
		return nil, err
	}
	return s.GetContent(content.ID)
}

func (s *ContentService) GetContent(id uint) (*model.TopicContent, error) {
	content, err := s.contents.FindByID(id)
	return content, mapNotFound(err, util.ErrTopicContentNotFound)
}

func (s *ContentService) ListContent(page, limit int) ([]model.TopicContent, int64, error) {
	return s.contents.List(page, limit)
}

func (s *ContentService) ContentByTopic(topicID uint) ([]model.TopicContent, error) {
	return s.contents.FindByTopic(topicID)
}

func (s *ContentService) UpdateContent(id uint, req TopicContentRequest) (*model.TopicContent, error) {
	content, err := s.GetContent(id)
	if err != nil {
		return nil, err
	}
	if req.TopicID != content.TopicID {
		if _, err := s.topics.FindByID(req.TopicID); err != nil {
			return nil, mapNotFound(err, util.ErrTopicNotFound)
		}
		content.TopicID = req.TopicID
		content.Topic = nil
	}
	if !validFileType(req.FileType) {
		return nil, util.NewError(util.ErrValidation, "Invalid file type")
	}
	content.Title = strings.TrimSpace(req.Title)
	content.Description = req.Description
	if req.Lessons != nil {
		content.Lessons = normalizeLessons(req.Lessons)
	}
	if req.FilePaths != nil {
		content.FilePaths = req.FilePaths
	}
	if req.FileType != "" {
		content.FileType = req.FileType
	}
	if err := s.contents.Save(content); err != nil {
		return nil, err
	}
	return s.GetContent(id)
}

// AttachFile uploads a lesson file. The file type follows the sniffed
// content type and a video also records its duration.
func (s *ContentService) AttachFile(ctx context.Context, id uint, fh *multipart.FileHeader) (*model.TopicContent, error) {
	content, err := s.GetContent(id)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Store(ctx, "contents", fh, util.AllowedContentTypes)
	if err != nil {
		return nil, err
	}

	content.FilePaths = append(content.FilePaths, stored.URL)
	switch {
	case util.IsVideo(stored.ContentType):
		content.FileType = model.FileTypeVideo
		if stored.Media != nil {
			content.VideoDuration = stored.Media.Duration
		}
	case util.IsAudio(stored.ContentType):
		content.FileType = model.FileTypeAudio
	default:
		content.FileType = model.FileTypeDocument
	}
	if err := s.contents.Save(content); err != nil {
		s.storage.Remove(ctx, stored.URL)
		return nil, err
	}
	return content, nil
}

func (s *ContentService) DeleteContent(ctx context.Context, id uint) error {
	content, err := s.GetContent(id)
	if err != nil {
		return err
	}
	if err := s.contents.Delete(id); err != nil {
		return err
	}
	for _, p := range content.FilePaths {
		s.storage.Remove(ctx, p)
	}
	return nil
}

func (s *ContentService) AddComment(contentID, studentID uint, body string) (*model.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, util.NewError(util.ErrValidation, "Comment text is required")
	}
	if _, err := s.GetContent(contentID); err != nil {
		return nil, err
	}
	comment := &model.Comment{
		TopicContentID: contentID,
		StudentID:      studentID,
		Body:           body,
		Lifecycle:      model.LifecycleActive,
	}
	if err := s.comments.Create(comment); err != nil {
		return nil, err
	}
	return s.comments.FindByID(comment.ID)
}

// Comments lists a content page's comments in one lifecycle state; the
// default is active.
func (s *ContentService) Comments(contentID uint, state model.Lifecycle) ([]model.Comment, error) {
	if state == "" {
		state = model.LifecycleActive
	}
	if state == model.LifecyclePurged || !state.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid lifecycle state")
	}
	return s.comments.FindByContent(contentID, state)
}

func (s *ContentService) comment(id uint) (*model.Comment, error) {
	c, err := s.comments.FindByID(id)
	return c, mapNotFound(err, util.ErrCommentNotFound)
}

// EditComment lets the author change the text of an active comment.
func (s *ContentService) EditComment(id, studentID uint, body string) (*model.Comment, error) {
	c, err := s.comment(id)
	if err != nil {
		return nil, err
	}
	if c.StudentID != studentID {
		return nil, util.NewError(util.ErrPermissionDenied, "Only the author can edit this comment")
	}
	if c.Lifecycle != model.LifecycleActive {
		return nil, util.ErrCommentNotFound
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, util.NewError(util.ErrValidation, "Comment text is required")
	}
	if err := s.comments.UpdateBody(id, body); err != nil {
		return nil, err
	}
	return s.comment(id)
}

// MoveComment applies a lifecycle transition. Students may only act on their
// own comments; studentID 0 means an admin.
func (s *ContentService) MoveComment(id, studentID uint, to model.Lifecycle) (*model.Comment, error) {
	c, err := s.comment(id)
	if err != nil {
		return nil, err
	}
	if studentID != 0 && c.StudentID != studentID {
		return nil, util.NewError(util.ErrPermissionDenied, "Only the author can change this comment")
	}
	if !c.Lifecycle.CanMoveTo(to) {
		return nil, util.ErrInvalidTransition
	}
	if to == model.LifecyclePurged {
		return nil, s.comments.Purge(id)
	}
	if err := s.comments.SetLifecycle(id, to); err != nil {
		return nil, err
	}
	c.Lifecycle = to
	return c, nil
}

type ReactionSummary struct {
	Counts []repository.ReactionCount `json:"counts"`
	Total  int64                      `json:"total"`
}

func (s *ContentService) React(contentID, studentID uint, kind model.ReactionType) (*ReactionSummary, error) {
	if !kind.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid reaction type")
	}
	if _, err := s.GetContent(contentID); err != nil {
		return nil, err
	}
	if err := s.reactions.Upsert(&model.Reaction{TopicContentID: contentID, StudentID: studentID, Type: kind}); err != nil {
		return nil, err
	}
	return s.Reactions(contentID)
}

func (s *ContentService) Unreact(contentID, studentID uint) (*ReactionSummary, error) {
	if _, err := s.reactions.Delete(contentID, studentID); err != nil {
		return nil, err
	}
	return s.Reactions(contentID)
}

func (s *ContentService) Reactions(contentID uint) (*ReactionSummary, error) {
	counts, err := s.reactions.CountByContent(contentID)
	if err != nil {
		return nil, err
	}
	summary := &ReactionSummary{Counts: counts}
	for _, c := range counts {
		summary.Total += c.Count
	}
	return summary, nil
}
