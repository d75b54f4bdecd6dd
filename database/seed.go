package database

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/periodic-tables/models"
	"github.com/yeremiapane/periodic-tables/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultTables is the starting floor plan.
var DefaultTables = []models.Table{
	{Name: "Bar #1", Capacity: 1, IsFree: true},
	{Name: "Bar #2", Capacity: 1, IsFree: true},
	{Name: "#1", Capacity: 6, IsFree: true},
	{Name: "#2", Capacity: 6, IsFree: true},
}

// Seed inserts the default floor plan and, when adminEmail is set, an admin
// account. Running it again changes nothing.
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range DefaultTables {
			var count int64
			if err := tx.Model(&models.Table{}).Where("table_name = ?", t.Name).Count(&count).Error; err != nil {
				return fmt.Errorf("check table %s: %w", t.Name, err)
			}
			if count > 0 {
				continue
			}
			table := t
			if err := tx.Create(&table).Error; err != nil {
				return fmt.Errorf("seed table %s: %w", t.Name, err)
			}
		}

		if adminEmail == "" {
			return nil
		}
		if adminPassword == "" {
			return errors.New("seed admin password is empty")
		}

		var admin models.User
		err := tx.Where("email = ?", adminEmail).First(&admin).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check admin: %w", err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin = models.User{
			Name:     "Administrator",
			Email:    adminEmail,
			Password: string(hashed),
			Role:     models.RoleAdmin,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		utils.InfoLogger.WithField("email", adminEmail).Info("seeded admin user")
		return nil
	})
}
