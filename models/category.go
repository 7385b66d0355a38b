package models

type Category struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"unique;not null" json:"name"`
	Image        string    `json:"image"`
	ProductCount int       `json:"product_count"`
	Products     []Product `gorm:"many2many:product_categories" json:"-"`
}
