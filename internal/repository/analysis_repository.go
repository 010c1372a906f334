package repository

import (
	"debate_arena/internal/models"
	"debate_arena/internal/storage"
)

type AnalysisRepository interface {
	// Create 寫入總評；DebateID 的唯一索引保證同一場辯論
	// 最多只有一筆，重複寫入會回傳 gorm.ErrDuplicatedKey
	Create(analysis *models.DebateAnalysis) error
	FindByDebateID(debateID uint) (*models.DebateAnalysis, error)
}

type analysisRepository struct {
	db *storage.PostgresDB
}

func NewAnalysisRepository(db *storage.PostgresDB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) Create(analysis *models.DebateAnalysis) error {
	return r.db.Create(analysis).Error
}

func (r *analysisRepository) FindByDebateID(debateID uint) (*models.DebateAnalysis, error) {
	var analysis models.DebateAnalysis
	err := r.db.Where("debate_id = ?", debateID).First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
