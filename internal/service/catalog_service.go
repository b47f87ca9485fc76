package service

import (
	"context"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"mime/multipart"
	"strings"

	"github.com/shopspring/decimal"
)

const randomTopicCount = 5

type SubjectRequest struct {
	SubjectName string             `json:"subjectName" binding:"required"`
	ImageURL    string             `json:"imageUrl"`
	Level       model.StudentLevel `json:"level" binding:"required"`
	ShowSubject *bool              `json:"showSubject"`
}

type TopicRequest struct {
	Title              string           `json:"title" binding:"required"`
	Description        string           `json:"description"`
	SubjectID          uint             `json:"subjectId" binding:"required"`
	ShowTopic          *bool            `json:"showTopic"`
	Price              *decimal.Decimal `json:"price"`
	RegularPrice       *decimal.Decimal `json:"regularPrice"`
	SubscriptionPeriod string           `json:"subscriptionPeriod"`
}

type CatalogService struct {
	subjects *repository.SubjectRepository
	topics   *repository.TopicRepository
	banners  *repository.BannerRepository
	storage  *StorageService
}

func NewCatalogService(subjects *repository.SubjectRepository, topics *repository.TopicRepository, banners *repository.BannerRepository, storage *StorageService) *CatalogService {
	return &CatalogService{subjects: subjects, topics: topics, banners: banners, storage: storage}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (s *CatalogService) CreateSubject(req SubjectRequest) (*model.Subject, error) {
	if !req.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	subject := &model.Subject{
		SubjectName: strings.TrimSpace(req.SubjectName),
		ImageURL:    req.ImageURL,
		Level:       req.Level,
		ShowSubject: boolOr(req.ShowSubject, true),
	}
	if err := s.subjects.Create(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) GetSubject(id uint) (*model.Subject, error) {
	subject, err := s.subjects.FindByID(id)
	return subject, mapNotFound(err, util.ErrSubjectNotFound)
}

func (s *CatalogService) ListSubjects(level model.StudentLevel, visibleOnly bool) ([]model.Subject, error) {
	if level != "" && !level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	return s.subjects.List(level, visibleOnly)
}

func (s *CatalogService) UpdateSubject(id uint, req SubjectRequest) (*model.Subject, error) {
	subject, err := s.GetSubject(id)
	if err != nil {
		return nil, err
	}
	if !req.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	subject.SubjectName = strings.TrimSpace(req.SubjectName)
	subject.Level = req.Level
	if req.ImageURL != "" {
		subject.ImageURL = req.ImageURL
	}
	subject.ShowSubject = boolOr(req.ShowSubject, subject.ShowSubject)
	if err := s.subjects.Save(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *CatalogService) UploadSubjectImage(ctx context.Context, id uint, fh *multipart.FileHeader) (*model.Subject, error) {
	subject, err := s.GetSubject(id)
	if err != nil {
		return nil, err
	}
	stored, err := s.storage.Store(ctx, "subjects", fh, util.AllowedImageTypes)
	if err != nil {
		return nil, err
	}
	old := subject.ImageURL
	subject.ImageURL = stored.URL
	if err := s.subjects.Save(subject); err != nil {
		return nil, err
	}
	s.storage.Remove(ctx, old)
	return subject, nil
}

func (s *CatalogService) DeleteSubject(id uint) error {
	if _, err := s.GetSubject(id); err != nil {
		return err
	}
	topics, err := s.topics.FindBySubject(id, false)
	if err != nil {
		return err
	}
	if len(topics) > 0 {
		return util.NewError(util.ErrConflict, "Subject still has topics")
	}
	return s.subjects.Delete(id)
}

func (s *CatalogService) CreateTopic(req TopicRequest) (*model.Topic, error) {
	if _, err := s.GetSubject(req.SubjectID); err != nil {
		return nil, err
	}
	topic := &model.Topic{
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		SubjectID:          req.SubjectID,
		ShowTopic:          boolOr(req.ShowTopic, true),
		Price:              decimal.Zero,
		RegularPrice:       decimal.Zero,
		SubscriptionPeriod: req.SubscriptionPeriod,
	}
	if err := applyPrices(topic, req); err != nil {
		return nil, err
	}
	if err := s.topics.Create(topic); err != nil {
		return nil, err
	}
	return s.GetTopic(topic.ID)
}

func applyPrices(topic *model.Topic, req TopicRequest) error {
	if req.Price != nil {
		if req.Price.IsNegative() {
			return util.NewError(util.ErrValidation, "Price must not be negative")
		}
		topic.Price = *req.Price
	}
	if req.RegularPrice != nil {
		if req.RegularPrice.IsNegative() {
			return util.NewError(util.ErrValidation, "Regular price must not be negative")
		}
		topic.RegularPrice = *req.RegularPrice
	}
	return nil
}

func (s *CatalogService) GetTopic(id uint) (*model.Topic, error) {
	topic, err := s.topics.FindByID(id)
	return topic, mapNotFound(err, util.ErrTopicNotFound)
}

func (s *CatalogService) ListTopics(page, limit int) ([]model.Topic, int64, error) {
	return s.topics.List(page, limit)
}

func (s *CatalogService) TopicsBySubject(subjectID uint, visibleOnly bool) ([]model.Topic, error) {
	if _, err := s.GetSubject(subjectID); err != nil {
		return nil, err
	}
	return s.topics.FindBySubject(subjectID, visibleOnly)
}

func (s *CatalogService) RandomTopics(subjectID uint) ([]model.Topic, error) {
	return s.topics.RandomBySubject(subjectID, randomTopicCount)
}

func (s *CatalogService) UpdateTopic(id uint, req TopicRequest) (*model.Topic, error) {
	topic, err := s.GetTopic(id)
	if err != nil {
		return nil, err
	}
	if req.SubjectID != topic.SubjectID {
		if _, err := s.GetSubject(req.SubjectID); err != nil {
			return nil, err
		}
		topic.SubjectID = req.SubjectID
		topic.Subject = nil
	}
	topic.Title = strings.TrimSpace(req.Title)
	topic.Description = req.Description
	topic.ShowTopic = boolOr(req.ShowTopic, topic.ShowTopic)
	if req.SubscriptionPeriod != "" {
		topic.SubscriptionPeriod = req.SubscriptionPeriod
	}
	if err := applyPrices(topic, req); err != nil {
		return nil, err
	}
	if err := s.topics.Save(topic); err != nil {
		return nil, err
	}
	return s.GetTopic(id)
}

func (s *CatalogService) DeleteTopic(id uint) error {
	if _, err := s.GetTopic(id); err != nil {
		return err
	}
	return s.topics.Delete(id)
}

type BannerRequest struct {
	Title      string `json:"title" form:"title"`
	ImageURL   string `json:"imageUrl" form:"imageUrl"`
	Link       string `json:"link" form:"link"`
	ShowBanner *bool  `json:"showBanner" form:"showBanner"`
}

// CreateBanner takes either an uploaded image or an image URL.
func (s *CatalogService) CreateBanner(ctx context.Context, req BannerRequest, image *multipart.FileHeader) (*model.HomeBanner, error) {
	banner := &model.HomeBanner{
		Title:      req.Title,
		ImageURL:   req.ImageURL,
		Link:       req.Link,
		ShowBanner: boolOr(req.ShowBanner, true),
	}
	if image != nil {
		stored, err := s.storage.Store(ctx, "banners", image, util.AllowedImageTypes)
		if err != nil {
			return nil, err
		}
		banner.ImageURL = stored.URL
	}
	if banner.ImageURL == "" {
		return nil, util.NewError(util.ErrValidation, "Banner image is required")
	}
	if err := s.banners.Create(banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *CatalogService) GetBanner(id uint) (*model.HomeBanner, error) {
	banner, err := s.banners.FindByID(id)
	return banner, mapNotFound(err, util.ErrBannerNotFound)
}

func (s *CatalogService) ListBanners(visibleOnly bool) ([]model.HomeBanner, error) {
	return s.banners.List(visibleOnly)
}

func (s *CatalogService) UpdateBanner(id uint, req BannerRequest) (*model.HomeBanner, error) {
	banner, err := s.GetBanner(id)
	if err != nil {
		return nil, err
	}
	if req.Title != "" {
		banner.Title = req.Title
	}
	if req.ImageURL != "" {
		banner.ImageURL = req.ImageURL
	}
	if req.Link != "" {
		banner.Link = req.Link
	}
	banner.ShowBanner = boolOr(req.ShowBanner, banner.ShowBanner)
	if err := s.banners.Save(banner); err != nil {
		return nil, err
	}
	return banner, nil
}

func (s *CatalogService) DeleteBanner(ctx context.Context, id uint) error {
	banner, err := s.GetBanner(id)
	if err != nil {
		return err
	}
	if err := s.banners.Delete(id); err != nil {
		return err
	}
	s.storage.Remove(ctx, banner.ImageURL)
	return nil
}

type LibraryService struct {
	repo    *repository.LibraryRepository
	storage *StorageService
}

func NewLibraryService(repo *repository.LibraryRepository, storage *StorageService) *LibraryService {
	return &LibraryService{repo: repo, storage: storage}
}

type BookRequest struct {
	Title          string             `json:"title" form:"title" binding:"required"`
	SubjectID      uint               `json:"subjectId" form:"subjectId"`
	Level          model.StudentLevel `json:"level" form:"level"`
	AuthorFullName string             `json:"authorFullName" form:"authorFullName"`
	FilePath       string             `json:"filePath" form:"filePath"`
	Description    string             `json:"description" form:"description"`
	ShowBook       *bool              `json:"showBook" form:"showBook"`
}

func (s *LibraryService) CreateBook(ctx context.Context, req BookRequest, file *multipart.FileHeader) (*model.LibraryBook, error) {
	if req.Level != "" && !req.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	book := &model.LibraryBook{
		Title:          req.Title,
		SubjectID:      req.SubjectID,
		Level:          req.Level,
		AuthorFullName: req.AuthorFullName,
		FilePath:       req.FilePath,
		Description:    req.Description,
		ShowBook:       boolOr(req.ShowBook, true),
	}
	if file != nil {
		stored, err := s.storage.Store(ctx, "library", file, []string{util.MimePDF, util.MimeImage})
		if err != nil {
			return nil, err
		}
		book.FilePath = stored.URL
	}
	if err := s.repo.Create(book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *LibraryService) GetBook(id uint) (*model.LibraryBook, error) {
	book, err := s.repo.FindByID(id)
	return book, mapNotFound(err, util.ErrBookNotFound)
}

func (s *LibraryService) ListBooks(subjectID uint, level model.StudentLevel, visibleOnly bool) ([]model.LibraryBook, error) {
	return s.repo.List(subjectID, level, visibleOnly)
}

func (s *LibraryService) PopularBooks(limit int) ([]model.LibraryBook, error) {
	if limit <= 0 {
		limit = util.DefaultPageSize
	}
	return s.repo.Popular(limit)
}

func (s *LibraryService) UpdateBook(id uint, req BookRequest) (*model.LibraryBook, error) {
	book, err := s.GetBook(id)
	if err != nil {
		return nil, err
	}
	if req.Level != "" && !req.Level.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid level")
	}
	book.Title = req.Title
	if req.SubjectID != 0 {
		book.SubjectID = req.SubjectID
	}
	if req.Level != "" {
		book.Level = req.Level
	}
	if req.AuthorFullName != "" {
		book.AuthorFullName = req.AuthorFullName
	}
	if req.FilePath != "" {
		book.FilePath = req.FilePath
	}
	if req.Description != "" {
		book.Description = req.Description
	}
	book.ShowBook = boolOr(req.ShowBook, book.ShowBook)
	if err := s.repo.Save(book); err != nil {
		return nil, err
	}
	return book, nil
}

// ToggleLike returns the book with its refreshed counter and whether the
// student now likes it.
func (s *LibraryService) ToggleLike(bookID, studentID uint) (*model.LibraryBook, bool, error) {
	if _, err := s.GetBook(bookID); err != nil {
		return nil, false, err
	}
	liked, err := s.repo.ToggleLike(bookID, studentID)
	if err != nil {
		return nil, false, err
	}
	book, err := s.GetBook(bookID)
	return book, liked, err
}

func (s *LibraryService) DeleteBook(ctx context.Context, id uint) error {
	book, err := s.GetBook(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.storage.Remove(ctx, book.FilePath)
	return nil
}
