package models

import "time"

// Table is a seatable table on the floor. ReservationID is set exactly when
// the table is occupied.
type Table struct {
	ID            uint         `gorm:"primaryKey;column:table_id" json:"table_id"`
	Name          string       `gorm:"column:table_name;type:varchar(50);not null" json:"table_name"`
	Capacity      int          `gorm:"not null" json:"capacity"`
	IsFree        bool         `gorm:"not null" json:"is_free"`
	ReservationID *uint        `gorm:"index" json:"reservation_id"`
	Reservation   *Reservation `gorm:"foreignKey:ReservationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

// Occupied reports whether a reservation is seated at the table.
func (t Table) Occupied() bool {
	return t.ReservationID != nil
}
