package model

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned" // 由后台清理任务设置，本核心不主动触达
)

// Session 一次答题（小测/模块测试/全真模拟的统一形态）
// 状态机：in_progress → completed（终态）；in_progress → abandoned（终态）
// swagger:model Session
type Session struct {
	UUIDBase
	UserID         uint          `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	PurchaseID     uint          `gorm:"index;type:bigint unsigned;not null" json:"purchaseId"`
	Status         SessionStatus `gorm:"type:enum('in_progress','completed','abandoned');default:'in_progress'" json:"status"`
	TotalQuestions int           `gorm:"not null" json:"totalQuestions"`
	CorrectAnswers *int          `json:"correctAnswers,omitempty"`
	Score          *int          `json:"score,omitempty"` // 0-100，完成后才有
	StartedAt      time.Time     `gorm:"not null" json:"startedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	TimeSpentSecs  *int          `json:"timeSpentSecs,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsTerminal 终态会话不再接受任何写入
func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionAbandoned
}

// SessionQuestion 会话与题目版本的有序关联，随会话一次性创建后不可变
type SessionQuestion struct {
	UUIDBase
	SessionID     string             `gorm:"uniqueIndex:idx_sq_variation;uniqueIndex:idx_sq_order;type:varchar(36);not null" json:"sessionId"`
	VariationID   uint               `gorm:"uniqueIndex:idx_sq_variation;type:bigint unsigned;not null" json:"variationId"`
	Variation     *QuestionVariation `gorm:"foreignKey:VariationID" json:"variation,omitempty"`
	QuestionOrder int                `gorm:"uniqueIndex:idx_sq_order;not null" json:"questionOrder"` // 1..N
}

func (SessionQuestion) TableName() string {
	return "session_questions"
}

// Answer 作答记录，(session_id, variation_id) 唯一，重复提交走 upsert 覆盖
type Answer struct {
	UUIDBase
	SessionID      string    `gorm:"uniqueIndex:idx_answer_slot;type:varchar(36);not null" json:"sessionId"`
	VariationID    uint      `gorm:"uniqueIndex:idx_answer_slot;type:bigint unsigned;not null" json:"variationId"`
	SelectedAnswer string    `gorm:"type:text;not null" json:"selectedAnswer"` // 选项原文或字母标签
	IsCorrect      bool      `gorm:"default:false" json:"isCorrect"`
	AnsweredAt     time.Time `gorm:"not null" json:"answeredAt"`
}

func (Answer) TableName() string {
	return "answers"
}
