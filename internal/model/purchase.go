package model

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseActive    PurchaseStatus = "active"
	PurchaseExpired   PurchaseStatus = "expired"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// Purchase 用户对套餐的一次购买，sessions_used 只增不减
// 仅当 status=active 且 sessions_used < sessions_total 时才允许开始新的答题
// swagger:model Purchase
type Purchase struct {
	BaseModel
	UserID        uint           `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	PackageID     uint           `gorm:"index;type:bigint unsigned;not null" json:"packageId"`
	Package       *Package       `gorm:"foreignKey:PackageID" json:"package,omitempty"`
	SessionsTotal int            `gorm:"not null" json:"sessionsTotal"`
	SessionsUsed  int            `gorm:"not null;default:0" json:"sessionsUsed"`
	Status        PurchaseStatus `gorm:"type:enum('pending','active','expired','cancelled');default:'pending'" json:"status"`
}

func (Purchase) TableName() string {
	return "purchases"
}

// Remaining 剩余可用次数
func (p *Purchase) Remaining() int {
	return p.SessionsTotal - p.SessionsUsed
}
