package model

// QuestionVariation 同一道底层题目的某个措辞版本
// (base_question_id, variation_number) 标识同一个"题位"，version 单调递增，
// 只有最高 version 的记录可以进入新的答题会话
// swagger:model QuestionVariation
type QuestionVariation struct {
	BaseModel
	BaseQuestionID  uint          `gorm:"index:idx_question_slot;type:bigint unsigned;not null" json:"baseQuestionId"`
	VariationNumber int           `gorm:"index:idx_question_slot;not null" json:"variationNumber"`
	Version         int           `gorm:"not null;default:1" json:"version"`
	TopicID         uint          `gorm:"index;type:bigint unsigned;not null" json:"topicId"`
	Topic           *Topic        `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Statement       string        `gorm:"type:text;not null" json:"statement"`
	ImageURL        string        `gorm:"size:255" json:"imageUrl,omitempty"`
	IsVisible       bool          `gorm:"default:true" json:"isVisible"`
	Alternatives    []Alternative `gorm:"foreignKey:VariationID" json:"alternatives,omitempty"`
}

func (QuestionVariation) TableName() string {
	return "question_variations"
}

// SlotKey 题位标识，抽题去重用
type SlotKey struct {
	BaseQuestionID  uint
	VariationNumber int
}

func (v *QuestionVariation) SlotKey() SlotKey {
	return SlotKey{BaseQuestionID: v.BaseQuestionID, VariationNumber: v.VariationNumber}
}

// Alternative 选项，每个 variation 恰好一个 is_correct=true
// swagger:model Alternative
type Alternative struct {
	BaseModel
	VariationID uint   `gorm:"index;type:bigint unsigned;not null" json:"variationId"`
	Text        string `gorm:"type:text;not null" json:"text"`
	IsCorrect   bool   `gorm:"default:false" json:"isCorrect"`
	Order       int    `gorm:"column:display_order;not null" json:"order"` // 0起，用于派生字母标签 A/B/C…
}

func (Alternative) TableName() string {
	return "alternatives"
}

// Letter 选项的字母标签：order 0 → A，1 → B …
func (a *Alternative) Letter() string {
	return string(rune('A' + a.Order))
}
