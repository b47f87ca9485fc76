package service

import (
	"context"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/util"
	"learning_platform_backend/pkg/logger"
	"mime/multipart"
	"strings"

	"go.uber.org/zap"
)

// ChatService handles direct messages between a student and an admin.
// Stored messages are pushed to the receiver through the hub when it is set.
type ChatService struct {
	repo     *repository.ChatRepository
	contents *repository.TopicContentRepository
	resolver *ParticipantResolver
	storage  *StorageService
	hub      *ChatHub
}

func NewChatService(repo *repository.ChatRepository, contents *repository.TopicContentRepository, resolver *ParticipantResolver, storage *StorageService, hub *ChatHub) *ChatService {
	return &ChatService{repo: repo, contents: contents, resolver: resolver, storage: storage, hub: hub}
}

type SendChatRequest struct {
	Receiver       model.Participant     `json:"receiver"`
	Message        string                `json:"message" form:"message"`
	TopicContentID *uint                 `json:"topicContentId" form:"topicContentId"`
	LessonInfoID   string                `json:"lessonInfoId" form:"lessonInfoId"`
	MessageType    model.ChatMessageType `json:"messageType" form:"messageType"`
}

func (s *ChatService) push(targets []model.Participant, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.PushTo(targets, WSMessage{Type: event, Data: data})
}

func (s *ChatService) Send(ctx context.Context, sender model.Participant, req SendChatRequest, images []*multipart.FileHeader) (*model.ChatMessage, error) {
	if !req.Receiver.Kind.Valid() || req.Receiver.RefID == 0 {
		return nil, util.NewError(util.ErrValidation, "Receiver is required")
	}
	if sender.Kind == req.Receiver.Kind {
		return nil, util.NewError(util.ErrValidation, "Chat is only between a student and an admin")
	}
	if err := s.resolver.Exists(req.Receiver); err != nil {
		return nil, err
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = model.ChatGeneral
	}
	switch msgType {
	case model.ChatGeneral:
	case model.ChatContentHelpRequest:
		if req.TopicContentID == nil {
			return nil, util.NewError(util.ErrValidation, "topicContentId is required for a content help request")
		}
	default:
		return nil, util.NewError(util.ErrValidation, "Invalid message type")
	}
	if req.TopicContentID != nil {
		if _, err := s.contents.FindByID(*req.TopicContentID); err != nil {
			return nil, mapNotFound(err, util.ErrTopicContentNotFound)
		}
	}

	text := strings.TrimSpace(req.Message)
	if text == "" && len(images) == 0 {
		return nil, util.NewError(util.ErrValidation, "Message text or image is required")
	}

	paths := make([]string, 0, len(images))
	for _, fh := range images {
		stored, err := s.storage.Store(ctx, "chat", fh, util.AllowedImageTypes)
		if err != nil {
			for _, p := range paths {
				s.storage.Remove(ctx, p)
			}
			return nil, err
		}
		paths = append(paths, stored.URL)
	}

	msg := &model.ChatMessage{
		Sender:         sender,
		Receiver:       req.Receiver,
		Message:        text,
		ImageAttached:  paths,
		TopicContentID: req.TopicContentID,
		LessonInfoID:   req.LessonInfoID,
		MessageType:    msgType,
	}
	if err := s.repo.Create(msg); err != nil {
		return nil, err
	}
	s.push([]model.Participant{req.Receiver, sender}, EventNewMessage, msg)
	return msg, nil
}

// Conversation returns both directions ordered oldest first.
func (s *ChatService) Conversation(me, other model.Participant) ([]model.ChatMessage, error) {
	if !other.Kind.Valid() {
		return nil, util.NewError(util.ErrValidation, "Invalid participant kind")
	}
	return s.repo.Conversation(me, other)
}

// MarkViewed marks what other sent to me as read and tells other about it.
func (s *ChatService) MarkViewed(me, other model.Participant) (int64, error) {
	n, err := s.repo.MarkViewed(other, me)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.push([]model.Participant{other}, EventViewed, map[string]interface{}{"by": me, "count": n})
	}
	return n, nil
}

func (s *ChatService) DeleteConversation(me, other model.Participant) (int64, error) {
	n, err := s.repo.DeleteConversation(me, other)
	if err != nil {
		return 0, err
	}
	logger.Log.Info("chat conversation deleted",
		zap.Stringer("by", me),
		zap.Stringer("with", other),
		zap.Int64("messages", n),
	)
	return n, nil
}

// DeleteMessage is allowed for the sender and for admins.
func (s *ChatService) DeleteMessage(ctx context.Context, id uint, actor model.Participant) error {
	msg, err := s.repo.FindByID(id)
	if err != nil {
		return mapNotFound(err, util.ErrMessageNotFound)
	}
	if actor.Kind != model.ParticipantAdmin && msg.Sender != actor {
		return util.NewError(util.ErrPermissionDenied, "Only the sender can delete this message")
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	for _, p := range msg.ImageAttached {
		s.storage.Remove(ctx, p)
	}
	s.push([]model.Participant{msg.Sender, msg.Receiver}, EventDeleted, map[string]interface{}{"id": id})
	return nil
}

type ChatPartner struct {
	*model.ParticipantProfile
	Online bool `json:"online"`
}

// Partners lists everyone me has chatted with, with presence when the hub
// is running.
func (s *ChatService) Partners(me model.Participant) ([]ChatPartner, error) {
	ps, err := s.repo.Partners(me)
	if err != nil {
		return nil, err
	}
	profiles, err := s.resolver.ResolveAll(ps)
	if err != nil {
		return nil, err
	}
	out := make([]ChatPartner, 0, len(ps))
	for _, p := range ps {
		prof, ok := profiles[p]
		if !ok {
			continue
		}
		partner := ChatPartner{ParticipantProfile: prof}
		if s.hub != nil {
			partner.Online = s.hub.IsOnline(p)
		}
		out = append(out, partner)
	}
	return out, nil
}

func (s *ChatService) UnreadCount(me model.Participant) (int64, error) {
	return s.repo.UnreadCount(me)
}
