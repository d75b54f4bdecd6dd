package models

import "time"

// User roles
const (
	RoleAdmin = "admin"
	RoleHost  = "host"
)

type User struct {
	ID        uint      `gorm:"primaryKey;column:user_id" json:"user_id"`
	Name      string    `gorm:"type:varchar(255); not null" json:"name"`
	Email     string    `gorm:"type:varchar(255); unique;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255); not null" json:"-"`
	Role      string    `gorm:"type:varchar(20); not null;default:'host'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
