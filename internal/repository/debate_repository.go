package repository

import (
	"errors"

	"gorm.io/gorm"

	"debate_arena/internal/models"
	"debate_arena/internal/storage"
)

// ErrVersionConflict 表示條件更新時版本號已經變動，
// 呼叫方應重新讀取狀態並重新驗證前置條件。
var ErrVersionConflict = errors.New("辯論狀態已被其他操作更新")

// debateUpdateColumns 是狀態轉換允許寫入的欄位。
// 必須明確列出，否則 gorm 會略過歸零的欄位
// （例如辯論結束時 current_speaker 要寫回 0）。
var debateUpdateColumns = []string{
	"status",
	"proponent_id", "opponent_id",
	"proponent_alias", "opponent_alias",
	"proponent_stance", "opponent_stance",
	"current_speaker", "current_round",
	"turn_started_at", "start_time", "end_time",
	"version", "updated_at",
}

type DebateRepository interface {
	Create(debate *models.Debate) error
	FindByID(id uint) (*models.Debate, error)
	FindAll() ([]models.Debate, error)
	// UpdateCAS 以樂觀鎖提交一次狀態轉換；版本不符時回傳 ErrVersionConflict
	UpdateCAS(debate *models.Debate) error
	// CommitTurn 在同一交易中寫入發言並提交輪次推進，
	// 兩者要麼一起成功、要麼一起回滾
	CommitTurn(debate *models.Debate, argument *models.Argument) error
}

type debateRepository struct {
	db *storage.PostgresDB
}

func NewDebateRepository(db *storage.PostgresDB) DebateRepository {
	return &debateRepository{db: db}
}

func (r *debateRepository) Create(debate *models.Debate) error {
	return r.db.Create(debate).Error
}

func (r *debateRepository) FindByID(id uint) (*models.Debate, error) {
	var debate models.Debate
	err := r.db.First(&debate, id).Error
	if err != nil {
		return nil, err
	}
	return &debate, nil
}

// FindAll 查詢所有辯論
func (r *debateRepository) FindAll() ([]models.Debate, error) {
	var debates []models.Debate
	err := r.db.Order("created_at DESC").Find(&debates).Error
	return debates, err
}

func (r *debateRepository) UpdateCAS(debate *models.Debate) error {
	return r.commitCAS(r.db.DB, debate)
}

func (r *debateRepository) CommitTurn(debate *models.Debate, argument *models.Argument) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(argument).Error; err != nil {
			return err
		}
		return r.commitCAS(tx, debate)
	})
}

// commitCAS 發出 WHERE id = ? AND version = ? 的條件更新。
// 影響零列表示驗證時讀到的狀態已經過期，整筆轉換作廢。
func (r *debateRepository) commitCAS(tx *gorm.DB, debate *models.Debate) error {
	expected := debate.Version
	debate.Version = expected + 1

	result := tx.Model(&models.Debate{}).
		Where("id = ? AND version = ?", debate.ID, expected).
		Select(debateUpdateColumns).
		Updates(debate)
	if result.Error != nil {
		debate.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		debate.Version = expected
		return ErrVersionConflict
	}
	return nil
}
