package models

import "time"

// Reservation statuses
const (
	ReservationBooked    = "booked"
	ReservationSeated    = "seated"
	ReservationFinished  = "finished"
	ReservationCancelled = "cancelled"
)

// ReservationStatuses lists every status a reservation may hold.
var ReservationStatuses = []string{
	ReservationBooked,
	ReservationSeated,
	ReservationFinished,
	ReservationCancelled,
}

// Reservation is a guest booking. ReservationDate is stored as YYYY-MM-DD and
// ReservationTime as HH:MM so ordering works the same on every driver.
type Reservation struct {
	ID              uint      `gorm:"primaryKey;column:reservation_id" json:"reservation_id"`
	FirstName       string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName        string    `gorm:"type:varchar(100);not null" json:"last_name"`
	MobileNumber    string    `gorm:"type:varchar(30);not null;index" json:"mobile_number"`
	ReservationDate string    `gorm:"type:varchar(10);not null;index:idx_reservation_slot" json:"reservation_date"`
	ReservationTime string    `gorm:"type:varchar(5);not null;index:idx_reservation_slot" json:"reservation_time"`
	People          int       `gorm:"not null" json:"people"`
	Status          string    `gorm:"type:varchar(20);not null;default:'booked';index" json:"status"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

// IsValidReservationStatus reports whether status is one of ReservationStatuses.
func IsValidReservationStatus(status string) bool {
	for _, s := range ReservationStatuses {
		if s == status {
			return true
		}
	}
	return false
}
