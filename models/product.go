package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog entry used for costing and stock checks. Name is the
// join key against bill detail names.
type Product struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;uniqueIndex:idx_product_business_name;size:64;not null" json:"business_id" validate:"required"`
	Name             string          `gorm:"uniqueIndex:idx_product_business_name;size:255;not null" json:"name" validate:"required"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	StockQuantity    int             `gorm:"default:0" json:"stock_quantity"`
	ReorderThreshold int             `gorm:"default:0" json:"reorder_threshold" validate:"gte=0"`
	SupplierLeadTime int             `gorm:"default:0" json:"supplier_lead_time" validate:"gte=0"`
	Category         string          `gorm:"size:255;default:null" json:"category"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
