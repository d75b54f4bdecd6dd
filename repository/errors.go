// Package repository holds the gorm-backed data access for reservations and
// tables. Handlers translate the sentinel errors below into HTTP statuses.
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/periodic-tables/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrTableOccupied is returned when seating a table that already holds a
// reservation, including when another request seated it first.
var ErrTableOccupied = errors.New("table is occupied")

// ErrTableNotOccupied is returned when freeing a table that holds no reservation.
var ErrTableNotOccupied = errors.New("table is not occupied")

// ErrReservationNotBooked is returned when seating, editing or changing the
// status of a reservation that is no longer booked.
var ErrReservationNotBooked = errors.New("reservation is not booked")

// ErrConflict signals that an operation cannot proceed because of dependent
// state, such as deleting an occupied table.
var ErrConflict = errors.New("conflict")

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// notBooked tells a missing reservation apart from one that has moved on.
func notBooked(tx *gorm.DB, id uint) error {
	if err := tx.Select("reservation_id").First(&models.Reservation{}, id).Error; err != nil {
		return notFound(err)
	}
	return ErrReservationNotBooked
}

// recordChange appends an outbox row inside tx.
func recordChange(tx *gorm.DB, table string, id uint, action string) error {
	return tx.Create(&models.DBChange{
		TableName:  table,
		RecordID:   int64(id),
		ActionType: action,
		ChangedAt:  time.Now().UTC(),
	}).Error
}
