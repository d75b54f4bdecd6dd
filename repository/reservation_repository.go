package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
)

// phoneDigits strips the punctuation hosts type into phone numbers. Nested
// REPLACE works on mysql, postgres and sqlite alike.
const phoneDigits = "REPLACE(REPLACE(REPLACE(REPLACE(mobile_number, '(', ''), ')', ''), ' ', ''), '-', '')"

const reservationsTable = "reservations"

// ReservationRepository provides CRUD and status updates on reservations.
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository returns a repository bound to db.
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListByDate returns the reservations for date that are not finished,
// earliest first.
func (r *ReservationRepository) ListByDate(ctx context.Context, date string) ([]models.Reservation, error) {
	reservations := make([]models.Reservation, 0)
	err := r.db.WithContext(ctx).
		Where("reservation_date = ?", date).
		Where("status <> ?", models.ReservationFinished).
		Order("reservation_time").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", date, err)
	}
	return reservations, nil
}

// Search finds reservations whose phone number contains the digits of
// mobileNumber, regardless of status, ordered by date.
func (r *ReservationRepository) Search(ctx context.Context, mobileNumber string) ([]models.Reservation, error) {
	reservations := make([]models.Reservation, 0)
	pattern := "%" + utils.DigitsOnly(mobileNumber) + "%"
	err := r.db.WithContext(ctx).
		Where(phoneDigits+" LIKE ?", pattern).
		Order("reservation_date").
		Order("reservation_time").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("search reservations: %w", err)
	}
	return reservations, nil
}

// Create inserts res and fills in its ID and timestamps.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	if res.Status == "" {
		res.Status = models.ReservationBooked
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return recordChange(tx, reservationsTable, res.ID, models.ActionInsert)
	})
}

// Read loads one reservation. It returns ErrNotFound when id is unknown.
func (r *ReservationRepository) Read(ctx context.Context, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// Update replaces the guest-editable fields of res. Status is left alone and
// only booked reservations change; anything else yields ErrReservationNotBooked.
func (r *ReservationRepository) Update(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Reservation{ID: res.ID}).
			Where("status = ?", models.ReservationBooked).
			Select("first_name", "last_name", "mobile_number", "reservation_date", "reservation_time", "people", "updated_at").
			Updates(res)
		if result.Error != nil {
			return fmt.Errorf("update reservation %d: %w", res.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return notBooked(tx, res.ID)
		}
		return recordChange(tx, reservationsTable, res.ID, models.ActionUpdate)
	})
	if err != nil {
		return nil, err
	}
	return r.Read(ctx, res.ID)
}

// UpdateStatus moves a booked reservation to status. Reservations that are
// no longer booked yield ErrReservationNotBooked.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uint, status string) (*models.Reservation, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Reservation{}).
			Where("reservation_id = ? AND status = ?", id, models.ReservationBooked).
			Update("status", status)
		if result.Error != nil {
			return fmt.Errorf("update reservation %d status: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return notBooked(tx, id)
		}
		return recordChange(tx, reservationsTable, id, models.ActionUpdate)
	})
	if err != nil {
		return nil, err
	}
	return r.Read(ctx, id)
}

// CancelOverdue cancels booked reservations whose slot is at or before the
// given date and HH:MM clock. It returns the cancelled IDs.
func (r *ReservationRepository) CancelOverdue(ctx context.Context, date, clock string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Reservation{}).
			Where("status = ?", models.ReservationBooked).
			Where("reservation_date < ? OR (reservation_date = ? AND reservation_time <= ?)", date, date, clock).
			Pluck("reservation_id", &ids).Error; err != nil {
			return fmt.Errorf("find overdue reservations: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&models.Reservation{}).
			Where("reservation_id IN ? AND status = ?", ids, models.ReservationBooked).
			Update("status", models.ReservationCancelled).Error; err != nil {
			return fmt.Errorf("cancel overdue reservations: %w", err)
		}
		for _, id := range ids {
			if err := recordChange(tx, reservationsTable, id, models.ActionUpdate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountByStatus returns how many reservations on date hold each status.
func (r *ReservationRepository) CountByStatus(ctx context.Context, date string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Select("status, COUNT(*) AS total").
		Where("reservation_date = ?", date).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count reservations for %s: %w", date, err)
	}

	counts := make(map[string]int64, len(models.ReservationStatuses))
	for _, s := range models.ReservationStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
