package models

import (
	"errors"

	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
)

var (
	ErrInvalidDateRange = utils.ErrorInvalidDateRange
	ErrBusinessRequired = utils.ErrorBusinessRequired

	ErrNonPositiveExpense = errors.New("expense amount must be greater than zero")
	ErrNegativeCostPrice  = errors.New("product cost price must not be negative")
)
