package models

import "time"

type ReturnStatus string
type ReturnType string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusCompleted ReturnStatus = "completed"

	ReturnTypeRefund   ReturnType = "refund"
	ReturnTypeExchange ReturnType = "exchange"
)

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusReceived, ReturnStatusCompleted},
	ReturnStatusReceived:  {ReturnStatusCompleted},
}

// CanTransition reports whether moving from s to next is a legal step.
func (s ReturnStatus) CanTransition(next ReturnStatus) bool {
	if s == next {
		return false
	}
	for _, allowed := range returnTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Return struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ReturnNumber string `gorm:"uniqueIndex;not null" json:"return_number"`
	OrderID      uint   `gorm:"index;not null" json:"order_id"`
	Order        Order  `gorm:"foreignKey:OrderID" json:"-"`
	UserID       string `gorm:"index;not null" json:"user_id"`

	Items       []ReturnItem  `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE" json:"items"`
	Images      []ReturnImage `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE" json:"images"`
	Reason      string        `json:"reason"`
	Description string        `json:"description"`

	Type   ReturnType   `gorm:"type:VARCHAR(16);default:'refund'" json:"type"`
	Status ReturnStatus `gorm:"type:VARCHAR(20);default:'requested'" json:"status"`

	RefundAmount float64      `json:"refund_amount"`
	RefundStatus RefundStatus `gorm:"type:VARCHAR(20)" json:"refund_status,omitempty"`
	RefundID     string       `json:"refund_id,omitempty"` // gateway refund id

	AdminNotes  string     `json:"admin_notes,omitempty"`
	ProcessedBy string     `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ReturnItem struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	ReturnID  uint    `gorm:"index" json:"-"`
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Reason    string  `json:"reason"`
}

type ReturnImage struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	ReturnID uint   `gorm:"index" json:"-"`
	URL      string `json:"url"`
}
