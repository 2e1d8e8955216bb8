package repository

import (
	"medprep_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) FindByID(id string) (*model.Session, error) {
	var s model.Session
	err := r.DB.First(&s, "id = ?", id).Error
	return &s, err
}

func (r *SessionRepository) ListByUser(userID uint, page, limit int) ([]model.Session, int64, error) {
	var ss []model.Session
	var total int64
	query := r.DB.Model(&model.Session{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

// HasQuestion 变体是否属于该会话的固定题单
func (r *SessionRepository) HasQuestion(sessionID string, variationID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.SessionQuestion{}).
		Where("session_id = ? AND variation_id = ?", sessionID, variationID).
		Count(&count).Error
	return count > 0, err
}

// ListQuestions 按创建时固定的出题顺序返回题单
func (r *SessionRepository) ListQuestions(sessionID string) ([]model.SessionQuestion, error) {
	var qs []model.SessionQuestion
	err := r.DB.Preload("Variation.Alternatives", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc")
	}).Where("session_id = ?", sessionID).
		Order("question_order asc").
		Find(&qs).Error
	return qs, err
}

// UpsertAnswer (session_id, variation_id) 唯一键冲突时覆盖，不会产生重复行
func (r *SessionRepository) UpsertAnswer(a *model.Answer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "variation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"selected_answer", "is_correct", "answered_at", "updated_at"}),
	}).Create(a).Error
}

func (r *SessionRepository) ListAnswers(sessionID string) ([]model.Answer, error) {
	var as []model.Answer
	err := r.DB.Where("session_id = ?", sessionID).Find(&as).Error
	return as, err
}

func (r *SessionRepository) CountCorrectAnswers(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Answer{}).
		Where("session_id = ? AND is_correct = ?", sessionID, true).
		Count(&count).Error
	return count, err
}

// Complete 守卫式完成：只有仍处于 in_progress 的会话会被更新，
// 并发重复完成时第二个调用方拿到 RowsAffected=0，退化为幂等读取
func (r *SessionRepository) Complete(sessionID string, correct, score, timeSpentSecs int, completedAt time.Time) (bool, error) {
	res := r.DB.Model(&model.Session{}).
		Where("id = ? AND status = ?", sessionID, model.SessionInProgress).
		Updates(map[string]interface{}{
			"status":          model.SessionCompleted,
			"correct_answers": correct,
			"score":           score,
			"time_spent_secs": timeSpentSecs,
			"completed_at":    completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
