package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DishCategory string

const (
	CategoryHot      DishCategory = "hot"
	CategoryCold     DishCategory = "cold"
	CategorySoup     DishCategory = "soup"
	CategoryStaple   DishCategory = "staple"
	CategoryBeverage DishCategory = "beverage"
)

// Categories in menu order.
var Categories = []DishCategory{CategoryHot, CategoryCold, CategorySoup, CategoryStaple, CategoryBeverage}

func (c DishCategory) Valid() bool {
	return c.Rank() >= 0
}

// Rank is the position of c on the printed menu, -1 for unknown categories.
func (c DishCategory) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return -1
}

type Dish struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Category    DishCategory    `gorm:"size:20;not null;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable bool            `gorm:"not null;index" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	FlavorRounds []FlavorRound `gorm:"foreignKey:DishID" json:"flavor_rounds"`
}

// FlavorRound: one customization axis of a dish (e.g. spice level).
type FlavorRound struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	DishID         uint   `gorm:"not null;uniqueIndex:idx_flavor_rounds_dish_seq" json:"dish_id"`
	SequenceNumber int    `gorm:"not null;uniqueIndex:idx_flavor_rounds_dish_seq" json:"sequence_number"`
	Name           string `gorm:"size:100;not null" json:"name"`

	Options []FlavorOption `gorm:"foreignKey:RoundID" json:"options"`
}

type FlavorOption struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	RoundID uint   `gorm:"not null;index" json:"round_id"`
	Name    string `gorm:"size:100;not null" json:"name"`
}

// HasOption reports whether name is one of the round's options.
func (r FlavorRound) HasOption(name string) bool {
	for _, o := range r.Options {
		if o.Name == name {
			return true
		}
	}
	return false
}
