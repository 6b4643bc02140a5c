package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&InviteCode{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// Unused codes are the only ones looked up on the hot path.
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_invite_codes_unused " +
			"ON invite_codes (code) WHERE used = false",
	).Error
}
