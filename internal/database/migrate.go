package database

import (
	"fmt"

	"gorm.io/gorm"

	"fieldwork/internal/domain/assignment"
	"fieldwork/internal/domain/audit"
	"fieldwork/internal/domain/auth"
	"fieldwork/internal/domain/equipment"
	"fieldwork/internal/domain/notification"
)

// Migrate creates or updates every table the service uses. Order matters
// for foreign keys: users and items before jobs, jobs before their children.
func Migrate(db *gorm.DB) error {
	models := []any{
		&auth.User{},
		&equipment.Item{},
	}
	models = append(models, assignment.Models()...)
	models = append(models,
		&equipment.Loan{},
		&notification.Notification{},
		&audit.ActivityLog{},
	)

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
