// seed-admin creates or updates the dispatch console admin user.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fueltrack360/dispatch_backend/config"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/utils"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@fueltrack360.local"
	adminPassword = "Fu3ltrack@dmin"
	adminName     = "FuelTrack Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// The admin is attached to the first organization in the DB; seeding an
	// empty database creates one.
	var org models.Organization
	err := db.WithContext(ctx).Model(&models.Organization{}).First(&org).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup organization: %v\n", err)
			os.Exit(1)
		}
		org = models.Organization{Name: "FuelTrack 360"}
		if err := db.WithContext(ctx).Create(&org).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create organization: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created organization %s (%s)\n", org.Name, org.ID)
	}

	ctx = utils.SetOrganizationIdInContext(ctx, org.ID)
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Model(&models.User{}).Where("email = ?", adminEmail).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			OrganizationId: org.ID,
			Name:           adminName,
			Email:          adminEmail,
			Password:       hashedStr,
			Role:           models.UserRoleAdmin,
			IsActive:       utils.PtrTo(true),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %s (%s)\n", adminEmail, u.ID)
		return
	}

	if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"password":  hashedStr,
		"role":      models.UserRoleAdmin,
		"is_active": true,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated admin user %s (%s)\n", adminEmail, existing.ID)
}
