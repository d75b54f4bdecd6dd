package database

import (
	"fmt"

	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns. Reservations go
// first because tables reference them.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Reservation{},
		&models.Table{},
		&models.DBChange{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Info("AutoMigrate completed.")
	return nil
}
