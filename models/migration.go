package models

import (
	"log"

	"bitbucket.org/mmdatafocus/ledger_analytics/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Bill{}, &BillDetail{},
		&Expense{},
		&Product{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
