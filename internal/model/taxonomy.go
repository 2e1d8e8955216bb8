package model

// Specialty 专科（内科、外科…），题目分类的一级节点
// swagger:model Specialty
type Specialty struct {
	BaseModel
	Name string `gorm:"size:100;not null" json:"name"`
}

func (Specialty) TableName() string {
	return "specialties"
}

// Topic 主题，题目分类的二级节点
// WeightPercentage 仅用于 mock_exam 套餐的分层抽题，为空的主题不参与加权
// swagger:model Topic
type Topic struct {
	BaseModel
	SpecialtyID      uint       `gorm:"index;type:bigint unsigned;not null" json:"specialtyId"`
	Specialty        *Specialty `gorm:"foreignKey:SpecialtyID" json:"specialty,omitempty"`
	Name             string     `gorm:"size:100;not null" json:"name"`
	WeightPercentage *float64   `json:"weightPercentage,omitempty"`
}

func (Topic) TableName() string {
	return "topics"
}
