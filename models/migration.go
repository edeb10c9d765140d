package models

import (
	"log"

	"bitbucket.org/mmdatafocus/ledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{},
		&Journal{}, &JournalEntry{},
		&BankTransaction{}, &Invoice{},
		&DailyBalance{}, &DailySummary{}, &AdjustmentEntry{},
		&ReconciliationSession{},
		&AuditEvent{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
