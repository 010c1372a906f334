package repository

import (
	"debate_arena/internal/models"
	"debate_arena/internal/storage"
)

type ArgumentRepository interface {
	// FindByDebateID 依寫入順序回傳一場辯論的全部發言
	FindByDebateID(debateID uint) ([]models.Argument, error)
	// AttachScore 為尚未評分的發言補寫分數。
	// 已有評分的發言不會被覆蓋，重複呼叫是無害的。
	AttachScore(argumentID uint, score float64, source string, feedback string) error
}

type argumentRepository struct {
	db *storage.PostgresDB
}

func NewArgumentRepository(db *storage.PostgresDB) ArgumentRepository {
	return &argumentRepository{db: db}
}

func (r *argumentRepository) FindByDebateID(debateID uint) ([]models.Argument, error) {
	var arguments []models.Argument
	err := r.db.Where("debate_id = ?", debateID).Order("created_at asc, id asc").Find(&arguments).Error
	return arguments, err
}

func (r *argumentRepository) AttachScore(argumentID uint, score float64, source string, feedback string) error {
	return r.db.Model(&models.Argument{}).
		Where("id = ? AND score_source = ''", argumentID).
		Updates(map[string]interface{}{
			"score":        score,
			"score_source": source,
			"feedback":     feedback,
		}).Error
}
