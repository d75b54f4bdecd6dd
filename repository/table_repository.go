package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/periodic-tables/models"
)

const tablesTable = "tables"

// TableRepository provides CRUD plus seat/free on tables. Seat and free also
// move the reservation they touch to its next status.
type TableRepository struct {
	db *gorm.DB
}

// NewTableRepository returns a repository bound to db.
func NewTableRepository(db *gorm.DB) *TableRepository {
	return &TableRepository{db: db}
}

// List returns every table ordered by name.
func (r *TableRepository) List(ctx context.Context) ([]models.Table, error) {
	tables := make([]models.Table, 0)
	if err := r.db.WithContext(ctx).Order("table_name").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// Create inserts table. When table.ReservationID is set the reservation is
// seated in the same transaction.
func (r *TableRepository) Create(ctx context.Context, table *models.Table) error {
	table.IsFree = table.ReservationID == nil
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if table.ReservationID != nil {
			if err := seatReservation(tx, *table.ReservationID); err != nil {
				return err
			}
		}
		if err := tx.Create(table).Error; err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		return recordChange(tx, tablesTable, table.ID, models.ActionInsert)
	})
}

// Read loads one table. It returns ErrNotFound when id is unknown.
func (r *TableRepository) Read(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := r.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &table, nil
}

// ReadReservation loads the reservation fields the seating checks need.
func (r *TableRepository) ReadReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Select("reservation_id", "people", "status").
		First(&res, reservationID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// Seat assigns reservationID to table tableID and marks the reservation
// seated. The table update only applies while the table is free, so two
// hosts racing for one table cannot both win.
func (r *TableRepository) Seat(ctx context.Context, tableID, reservationID uint) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Table{}).
			Where("table_id = ? AND reservation_id IS NULL", tableID).
			Updates(map[string]interface{}{
				"reservation_id": reservationID,
				"is_free":        false,
			})
		if result.Error != nil {
			return fmt.Errorf("seat table %d: %w", tableID, result.Error)
		}
		if result.RowsAffected == 0 {
			if err := tx.Select("table_id").First(&models.Table{}, tableID).Error; err != nil {
				return notFound(err)
			}
			return ErrTableOccupied
		}

		if err := seatReservation(tx, reservationID); err != nil {
			return err
		}
		if err := recordChange(tx, tablesTable, tableID, models.ActionUpdate); err != nil {
			return err
		}
		return tx.First(&table, tableID).Error
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func seatReservation(tx *gorm.DB, reservationID uint) error {
	result := tx.Model(&models.Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID, models.ReservationBooked).
		Update("status", models.ReservationSeated)
	if result.Error != nil {
		return fmt.Errorf("seat reservation %d: %w", reservationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return notBooked(tx, reservationID)
	}
	return recordChange(tx, reservationsTable, reservationID, models.ActionUpdate)
}

// Free clears the table's reservation and marks that reservation finished.
func (r *TableRepository) Free(ctx context.Context, tableID uint) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, tableID).Error; err != nil {
			return notFound(err)
		}
		if table.ReservationID == nil {
			return ErrTableNotOccupied
		}
		reservationID := *table.ReservationID

		result := tx.Model(&models.Table{}).
			Where("table_id = ? AND reservation_id = ?", tableID, reservationID).
			Updates(map[string]interface{}{
				"reservation_id": nil,
				"is_free":        true,
			})
		if result.Error != nil {
			return fmt.Errorf("free table %d: %w", tableID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTableNotOccupied
		}

		if err := tx.Model(&models.Reservation{}).
			Where("reservation_id = ?", reservationID).
			Update("status", models.ReservationFinished).Error; err != nil {
			return fmt.Errorf("finish reservation %d: %w", reservationID, err)
		}

		if err := recordChange(tx, tablesTable, tableID, models.ActionUpdate); err != nil {
			return err
		}
		if err := recordChange(tx, reservationsTable, reservationID, models.ActionUpdate); err != nil {
			return err
		}
		return tx.First(&table, tableID).Error
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// Delete removes a free table. Occupied tables yield ErrConflict.
func (r *TableRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, id).Error; err != nil {
			return notFound(err)
		}
		if table.Occupied() {
			return ErrConflict
		}
		if err := tx.Delete(&table).Error; err != nil {
			return fmt.Errorf("delete table %d: %w", id, err)
		}
		return recordChange(tx, tablesTable, id, models.ActionDelete)
	})
}

// Occupancy counts free and occupied tables.
func (r *TableRepository) Occupancy(ctx context.Context) (free, occupied int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.Table{}).Where("reservation_id IS NULL").Count(&free).Error; err != nil {
		return 0, 0, fmt.Errorf("count free tables: %w", err)
	}
	if err = r.db.WithContext(ctx).Model(&models.Table{}).Where("reservation_id IS NOT NULL").Count(&occupied).Error; err != nil {
		return 0, 0, fmt.Errorf("count occupied tables: %w", err)
	}
	return free, occupied, nil
}
