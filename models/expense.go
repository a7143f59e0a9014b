package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;size:64;not null" json:"business_id" validate:"required"`
	ExpenseDate time.Time       `gorm:"index;not null" json:"expense_date" validate:"required"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Category    string          `gorm:"index;size:255;default:null" json:"category"`
	Description string          `gorm:"type:text;default:null" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
