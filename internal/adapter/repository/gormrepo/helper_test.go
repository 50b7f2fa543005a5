package gormrepo

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	loanDomain "loan-service/internal/domain/loan"
	userDomain "loan-service/internal/domain/user"
)

// openTestDB creates an in-memory sqlite DB with the domain schema.
// A single connection keeps every query on the same in-memory database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&loanDomain.Loan{}, &userDomain.User{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
