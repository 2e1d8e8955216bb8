package model

type PackageKind string

const (
	PackageControl  PackageKind = "control"   // 15题小测
	PackageExam     PackageKind = "exam"      // 45题模块测试
	PackageMockExam PackageKind = "mock_exam" // 180题全真模拟（按专科权重抽题）
)

// Package 可购买的套餐，创建后对本核心只读
// swagger:model Package
type Package struct {
	BaseModel
	Name           string      `gorm:"size:255;not null" json:"name"`
	Kind           PackageKind `gorm:"type:enum('control','exam','mock_exam');not null" json:"kind"`
	PriceCents     int         `gorm:"not null" json:"priceCents"`
	SessionQty     int         `gorm:"not null" json:"sessionQty"`     // 套餐包含的答题次数
	TotalQuestions int         `gorm:"not null" json:"totalQuestions"` // 每次答题的题量 15/45/180
	IsActive       bool        `gorm:"default:true" json:"isActive"`
}

func (Package) TableName() string {
	return "packages"
}
