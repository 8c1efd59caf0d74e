package models

import "time"

type TableStatus string

const (
	TableFree          TableStatus = "free"
	TableOccupied      TableStatus = "occupied"
	TableNeedsCleaning TableStatus = "needs_cleaning"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableFree, TableOccupied, TableNeedsCleaning:
		return true
	}
	return false
}

// Next reports the only status the table may move to from s.
// Free -> Occupied -> NeedsCleaning -> Free.
func (s TableStatus) Next() TableStatus {
	switch s {
	case TableFree:
		return TableOccupied
	case TableOccupied:
		return TableNeedsCleaning
	default:
		return TableFree
	}
}

// Table is a physical seating unit. Created by seeding, never deleted.
type Table struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Type      string      `gorm:"size:50;not null" json:"type"` // hall / booth / private_room
	Capacity  int         `gorm:"not null" json:"capacity"`
	Status    TableStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
