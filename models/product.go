package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	Description   string  `json:"description"`
	Price         float64 `gorm:"not null" json:"price"`
	OriginalPrice float64 `json:"original_price"` // pre-discount price, display only
	Image         string  `json:"image"`
	// Stock is the authoritative counter decremented on order confirmation.
	// Per-size stock is informational and only validates size membership.
	Stock      int            `json:"stock"`
	Sizes      []SizeStock    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"sizes"`
	IsActive   bool           `json:"is_active"`
	Categories []Category     `gorm:"many2many:product_categories;" json:"categories"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type SizeStock struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ProductID uint   `gorm:"index" json:"-"`
	Size      string `json:"size"`
	Stock     int    `json:"stock"`
}

// HasSize reports whether size is among the product's declared sizes.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s.Size == size {
			return true
		}
	}
	return false
}
