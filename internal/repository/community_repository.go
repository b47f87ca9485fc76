package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type CommunityRepository struct {
	DB *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{DB: db}
}

func (r *CommunityRepository) Create(community *model.Community) error {
	return r.DB.Create(community).Error
}

func (r *CommunityRepository) Save(community *model.Community) error {
	return r.DB.Omit("Members").Save(community).Error
}

func (r *CommunityRepository) FindByID(id uint) (*model.Community, error) {
	var community model.Community
	if err := r.DB.Preload("Subject").Preload("Members").First(&community, id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) List(level model.StudentLevel, subjectID uint, visibleOnly bool) ([]model.Community, error) {
	var communities []model.Community
	query := r.DB.Preload("Subject")
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if subjectID != 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if visibleOnly {
		query = query.Where("show_community = ?", true)
	}
	err := query.Order("created_at DESC").Find(&communities).Error
	return communities, err
}

// ListForParticipant returns the communities p belongs to.
func (r *CommunityRepository) ListForParticipant(p model.Participant) ([]model.Community, error) {
	var communities []model.Community
	err := r.DB.Preload("Subject").
		Joins("JOIN community_members cm ON cm.community_id = communities.id").
		Where("cm.member_kind = ? AND cm.member_ref_id = ?", p.Kind, p.RefID).
		Find(&communities).Error
	return communities, err
}

func (r *CommunityRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("community_id = ?", id).Delete(&model.CommunityMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&model.CommunityMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Community{}, id).Error
	})
}

func (r *CommunityRepository) IsMember(communityID uint, p model.Participant) (bool, error) {
	var count int64
	err := r.DB.Model(&model.CommunityMember{}).
		Where("community_id = ? AND member_kind = ? AND member_ref_id = ?", communityID, p.Kind, p.RefID).
		Count(&count).Error
	return count > 0, err
}

func (r *CommunityRepository) AddMember(member *model.CommunityMember) error {
	return r.DB.Create(member).Error
}

func (r *CommunityRepository) RemoveMember(communityID uint, p model.Participant) (int64, error) {
	res := r.DB.Where("community_id = ? AND member_kind = ? AND member_ref_id = ?", communityID, p.Kind, p.RefID).
		Delete(&model.CommunityMember{})
	return res.RowsAffected, res.Error
}

func (r *CommunityRepository) CreateMessage(msg *model.CommunityMessage) error {
	return r.DB.Create(msg).Error
}

func (r *CommunityRepository) FindMessage(id uint) (*model.CommunityMessage, error) {
	var msg model.CommunityMessage
	if err := r.DB.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *CommunityRepository) Messages(communityID uint, page, limit int) ([]model.CommunityMessage, int64, error) {
	var msgs []model.CommunityMessage
	var total int64
	query := r.DB.Model(&model.CommunityMessage{}).Where("community_id = ?", communityID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&msgs).Error
	return msgs, total, err
}

func (r *CommunityRepository) DeleteMessage(id uint) error {
	return r.DB.Delete(&model.CommunityMessage{}, id).Error
}
