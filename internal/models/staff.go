package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleKitchen  Role = "kitchen"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleWaiter, RoleKitchen, RoleManager:
		return true
	}
	return false
}

// Staff logs in from a waiter, kitchen or manager terminal. Customers never
// have a staff record.
type Staff struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex;not null"`
	PinHash   string `gorm:"size:255;not null"`
	Role      Role   `gorm:"size:20;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
