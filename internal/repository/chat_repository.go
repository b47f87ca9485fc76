package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) Create(msg *model.ChatMessage) error {
	return r.DB.Create(msg).Error
}

func (r *ChatRepository) FindByID(id uint) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := r.DB.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// between scopes a query to messages exchanged by a and b in either direction.
func between(a, b model.Participant) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(sender_kind = ? AND sender_ref_id = ? AND receiver_kind = ? AND receiver_ref_id = ?) OR "+
				"(sender_kind = ? AND sender_ref_id = ? AND receiver_kind = ? AND receiver_ref_id = ?)",
			a.Kind, a.RefID, b.Kind, b.RefID,
			b.Kind, b.RefID, a.Kind, a.RefID,
		)
	}
}

func (r *ChatRepository) Conversation(a, b model.Participant) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.DB.Scopes(between(a, b)).Order("created_at ASC, id ASC").Find(&msgs).Error
	return msgs, err
}

// MarkViewed flags everything from sender to receiver as read.
func (r *ChatRepository) MarkViewed(sender, receiver model.Participant) (int64, error) {
	res := r.DB.Model(&model.ChatMessage{}).
		Where("sender_kind = ? AND sender_ref_id = ? AND receiver_kind = ? AND receiver_ref_id = ? AND viewed = ?",
			sender.Kind, sender.RefID, receiver.Kind, receiver.RefID, false).
		Update("viewed", true)
	return res.RowsAffected, res.Error
}

func (r *ChatRepository) DeleteConversation(a, b model.Participant) (int64, error) {
	res := r.DB.Scopes(between(a, b)).Delete(&model.ChatMessage{})
	return res.RowsAffected, res.Error
}

func (r *ChatRepository) Delete(id uint) error {
	return r.DB.Delete(&model.ChatMessage{}, id).Error
}

// Partners lists the distinct counterparts p has exchanged messages with.
func (r *ChatRepository) Partners(p model.Participant) ([]model.Participant, error) {
	var sent, received []model.Participant
	if err := r.DB.Model(&model.ChatMessage{}).
		Distinct("receiver_kind AS kind", "receiver_ref_id AS ref_id").
		Where("sender_kind = ? AND sender_ref_id = ?", p.Kind, p.RefID).
		Scan(&sent).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.ChatMessage{}).
		Distinct("sender_kind AS kind", "sender_ref_id AS ref_id").
		Where("receiver_kind = ? AND receiver_ref_id = ?", p.Kind, p.RefID).
		Scan(&received).Error; err != nil {
		return nil, err
	}

	seen := make(map[model.Participant]bool, len(sent)+len(received))
	var out []model.Participant
	for _, q := range append(sent, received...) {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *ChatRepository) UnreadCount(receiver model.Participant) (int64, error) {
	var total int64
	err := r.DB.Model(&model.ChatMessage{}).
		Where("receiver_kind = ? AND receiver_ref_id = ? AND viewed = ?", receiver.Kind, receiver.RefID, false).
		Count(&total).Error
	return total, err
}
