package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestMigrate_AppliesEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	for range schema {
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	if err := Migrate(context.Background(), db, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	if err := Migrate(context.Background(), db, logger); err == nil {
		t.Fatal("Expected migration error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestSchema_GuardsStockAndQuantity(t *testing.T) {
	var stock, quantity bool
	for _, stmt := range schema {
		if strings.Contains(stmt, "CHECK (stock_quantity >= 0)") {
			stock = true
		}
		if strings.Contains(stmt, "CHECK (quantity > 0)") {
			quantity = true
		}
	}
	if !stock || !quantity {
		t.Errorf("Expected stock and quantity checks in schema (stock=%v, quantity=%v)", stock, quantity)
	}
}
