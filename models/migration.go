package models

import (
	"github.com/fueltrack360/dispatch_backend/config"
)

// MigrateTables creates/updates the schema and installs the journal guard
// triggers. Called once at startup after the database connection is up.
func MigrateTables() error {
	db := config.GetDB()
	logger := config.GetLogger()

	err := db.AutoMigrate(
		&Organization{},
		&Station{},
		&User{},
		&Truck{},
		&GpsLog{},
		&S2LChecklist{},
		&S2LPhoto{},
		&Manifest{},
		&ManifestNumberSeries{},
		&AuditEvent{},
	)
	if err != nil {
		return err
	}

	if err := installAuditGuards(); err != nil {
		return err
	}

	logger.Info("database migration completed")
	return nil
}

// installAuditGuards makes audit_events append-only at the database level:
// any UPDATE or DELETE is rejected with a signal, regardless of which client
// issues it.
func installAuditGuards() error {
	db := config.GetDB()

	statements := []string{
		"DROP TRIGGER IF EXISTS audit_events_no_update",
		"CREATE TRIGGER audit_events_no_update BEFORE UPDATE ON audit_events FOR EACH ROW " +
			"SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'audit events are append-only'",
		"DROP TRIGGER IF EXISTS audit_events_no_delete",
		"CREATE TRIGGER audit_events_no_delete BEFORE DELETE ON audit_events FOR EACH ROW " +
			"SIGNAL SQLSTATE '45000' SET MESSAGE_TEXT = 'audit events are append-only'",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
