package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is one recorded ledger entry. Debit bills are sales, Credit bills are
// payments received or other inflows that carry no sale.
type Bill struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;uniqueIndex:idx_bill_business_number;size:64;not null" json:"business_id" validate:"required"`
	BillNumber      int             `gorm:"uniqueIndex:idx_bill_business_number;not null" json:"bill_number" validate:"gt=0"`
	CustomerKey     string          `gorm:"index;size:255;not null" json:"customer_key" validate:"required"`
	BillDate        time.Time       `gorm:"index;not null" json:"bill_date" validate:"required"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TransactionType TransactionType `gorm:"type:enum('Debit','Credit');not null" json:"transaction_type" validate:"oneof=Debit Credit"`
	Remarks         string          `gorm:"type:text;default:null" json:"remarks"`
	Details         []BillDetail    `json:"bill_details" validate:"-"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillDetail struct {
	ID       int             `gorm:"primary_key" json:"id"`
	BillId   int             `gorm:"index;not null" json:"bill_id"`
	SeqNo    int             `gorm:"not null" json:"seq_no"`
	Name     string          `gorm:"size:255;not null" json:"name" validate:"required"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Total    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
}
