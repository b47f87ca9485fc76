package service

import (
	"context"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"mime/multipart"
	"strings"
)

type CommunityService struct {
	repo     *repository.CommunityRepository
	subjects *repository.SubjectRepository
	resolver *ParticipantResolver
	storage  *StorageService
}

func NewCommunityService(repo *repository.CommunityRepository, subjects *repository.SubjectRepository, resolver *ParticipantResolver, storage *StorageService) *CommunityService {
	return &CommunityService{repo: repo, subjects: subjects, resolver: resolver, storage: storage}
}

type CommunityRequest struct {
	Name           string             `json:"name" form:"name" binding:"required"`
	ProfilePicture string             `json:"profilePicture" form:"profilePicture"`
	SubjectID      uint               `json:"subjectId" form:"subjectId"`
	Level          model.StudentLevel `json:"level" form:"level"`
	ShowCommunity  *bool              `json:"showCommunity" form:"showCommunity"`
}

func (s *CommunityService) checkRefs(req CommunityRequest) error {
	if req.Level != "" && !req.Level.Valid() {
		return util.NewError(util.ErrValidation, "Invalid level")
	}
	if req.SubjectID != 0 {
		if _, err := s.subjects.FindByID(req.SubjectID); err != nil {
			return mapNotFound(err, util.ErrSubjectNotFound)
		}
	}
	return nil
}

func (s *CommunityService) CreateCommunity(ctx context.Context, req CommunityRequest, picture *multipart.FileHeader) (*model.Community, error) {
	if err := s.checkRefs(req); err != nil {
		return nil, err
	}
	community := &model.Community{
		Name:           strings.TrimSpace(req.Name),
		ProfilePicture: req.ProfilePicture,
		SubjectID:      req.SubjectID,
		Level:          req.Level,
		ShowCommunity:  boolOr(req.ShowCommunity, true),
	}
	if picture != nil {
		stored, err := s.storage.Store(ctx, "communities", picture, util.AllowedImageTypes)
		if err != nil {
			return nil, err
		}
		community.ProfilePicture = stored.URL
	}
	if err := s.repo.Create(community); err != nil {
		return nil, err
	}
	return s.GetCommunity(community.ID)
}

func (s *CommunityService) GetCommunity(id uint) (*model.Community, error) {
	c, err := s.repo.FindByID(id)
	return c, mapNotFound(err, util.ErrCommunityNotFound)
}

func (s *CommunityService) ListCommunities(level model.StudentLevel, subjectID uint, visibleOnly bool) ([]model.Community, error) {
	return s.repo.List(level, subjectID, visibleOnly)
}

func (s *CommunityService) MyCommunities(p model.Participant) ([]model.Community, error) {
	return s.repo.ListForParticipant(p)
}

func (s *CommunityService) UpdateCommunity(id uint, req CommunityRequest) (*model.Community, error) {
	community, err := s.GetCommunity(id)
	if err != nil {
		return nil, err
	}
	if err := s.checkRefs(req); err != nil {
		return nil, err
	}
	community.Name = strings.TrimSpace(req.Name)
	if req.ProfilePicture != "" {
		community.ProfilePicture = req.ProfilePicture
	}
	if req.SubjectID != 0 {
		community.SubjectID = req.SubjectID
		community.Subject = nil
	}
	if req.Level != "" {
		community.Level = req.Level
	}
	community.ShowCommunity = boolOr(req.ShowCommunity, community.ShowCommunity)
	if err := s.repo.Save(community); err != nil {
		return nil, err
	}
	return s.GetCommunity(id)
}

func (s *CommunityService) DeleteCommunity(ctx context.Context, id uint) error {
	community, err := s.GetCommunity(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.storage.Remove(ctx, community.ProfilePicture)
	return nil
}

// AddMember puts p into the community after checking the account exists.
func (s *CommunityService) AddMember(communityID uint, p model.Participant) (*model.Community, error) {
	if _, err := s.GetCommunity(communityID); err != nil {
		return nil, err
	}
	if err := s.resolver.Exists(p); err != nil {
		return nil, err
	}
	member, err := s.repo.IsMember(communityID, p)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, util.ErrAlreadyMember
	}
	if err := s.repo.AddMember(&model.CommunityMember{CommunityID: communityID, Member: p}); err != nil {
		return nil, err
	}
	return s.GetCommunity(communityID)
}

func (s *CommunityService) RemoveMember(communityID uint, p model.Participant) (*model.Community, error) {
	if _, err := s.GetCommunity(communityID); err != nil {
		return nil, err
	}
	n, err := s.repo.RemoveMember(communityID, p)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, util.ErrNotMember
	}
	return s.GetCommunity(communityID)
}

// CommunityMessageView is a message with its sender resolved.
type CommunityMessageView struct {
	model.CommunityMessage
	SenderProfile *model.ParticipantProfile `json:"senderProfile,omitempty"`
}

// PostMessage stores a message with optional images. Students must be
// members; admins moderate every community.
func (s *CommunityService) PostMessage(ctx context.Context, communityID uint, sender model.Participant, text string, images []*multipart.FileHeader) (*CommunityMessageView, error) {
	if _, err := s.GetCommunity(communityID); err != nil {
		return nil, err
	}
	if sender.Kind == model.ParticipantStudent {
		member, err := s.repo.IsMember(communityID, sender)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, util.NewError(util.ErrPermissionDenied, "Join the community before posting")
		}
	}
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return nil, util.NewError(util.ErrValidation, "Message text or image is required")
	}

	paths := make([]string, 0, len(images))
	for _, fh := range images {
		stored, err := s.storage.Store(ctx, "community", fh, util.AllowedImageTypes)
		if err != nil {
			for _, p := range paths {
				s.storage.Remove(ctx, p)
			}
			return nil, err
		}
		paths = append(paths, stored.URL)
	}

	msg := &model.CommunityMessage{
		CommunityID: communityID,
		Sender:      sender,
		Message:     text,
		ImagePaths:  paths,
	}
	if err := s.repo.CreateMessage(msg); err != nil {
		return nil, err
	}
	view := &CommunityMessageView{CommunityMessage: *msg}
	if prof, err := s.resolver.Resolve(sender); err == nil {
		view.SenderProfile = prof
	}
	return view, nil
}

func (s *CommunityService) Messages(communityID uint, page, limit int) ([]CommunityMessageView, int64, error) {
	if _, err := s.GetCommunity(communityID); err != nil {
		return nil, 0, err
	}
	msgs, total, err := s.repo.Messages(communityID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	senders := make([]model.Participant, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.Sender)
	}
	profiles, err := s.resolver.ResolveAll(senders)
	if err != nil {
		return nil, 0, err
	}
	views := make([]CommunityMessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, CommunityMessageView{CommunityMessage: m, SenderProfile: profiles[m.Sender]})
	}
	return views, total, nil
}

// DeleteMessage is allowed for the sender and for admins.
func (s *CommunityService) DeleteMessage(ctx context.Context, id uint, actor model.Participant) error {
	msg, err := s.repo.FindMessage(id)
	if err != nil {
		return mapNotFound(err, util.ErrMessageNotFound)
	}
	if actor.Kind != model.ParticipantAdmin && msg.Sender != actor {
		return util.NewError(util.ErrPermissionDenied, "Only the sender can delete this message")
	}
	if err := s.repo.DeleteMessage(id); err != nil {
		return err
	}
	for _, p := range msg.ImagePaths {
		s.storage.Remove(ctx, p)
	}
	return nil
}
