package repository

import (
	"debate_arena/internal/models"
	"debate_arena/internal/storage"
)

type JoinRequestRepository interface {
	Create(request *models.JoinRequest) error
	FindByDebateAndUser(debateID, userID uint) (*models.JoinRequest, error)
	FindPendingByDebate(debateID uint) ([]models.JoinRequest, error)
	Update(request *models.JoinRequest) error
	// Delete 在請求者實際入座後移除對應的請求記錄
	Delete(debateID, userID uint) error
}

type joinRequestRepository struct {
	db *storage.PostgresDB
}

func NewJoinRequestRepository(db *storage.PostgresDB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) Create(request *models.JoinRequest) error {
	return r.db.Create(request).Error
}

func (r *joinRequestRepository) FindByDebateAndUser(debateID, userID uint) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := r.db.Where("debate_id = ? AND user_id = ?", debateID, userID).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *joinRequestRepository) FindPendingByDebate(debateID uint) ([]models.JoinRequest, error) {
	var requests []models.JoinRequest
	err := r.db.Where("debate_id = ? AND status = ?", debateID, models.JoinRequestPending).
		Order("created_at asc").Find(&requests).Error
	return requests, err
}

func (r *joinRequestRepository) Update(request *models.JoinRequest) error {
	return r.db.Save(request).Error
}

func (r *joinRequestRepository) Delete(debateID, userID uint) error {
	return r.db.Unscoped().
		Where("debate_id = ? AND user_id = ?", debateID, userID).
		Delete(&models.JoinRequest{}).Error
}
