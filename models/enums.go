package models

import "fmt"

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "Debit"
	TransactionTypeCredit TransactionType = "Credit"
)

func (e TransactionType) IsValid() bool {
	switch e {
	case TransactionTypeDebit, TransactionTypeCredit:
		return true
	}
	return false
}

func (e TransactionType) String() string {
	return string(e)
}

func (e *TransactionType) UnmarshalText(text []byte) error {
	*e = TransactionType(text)
	if !e.IsValid() {
		return fmt.Errorf("%s is not a valid TransactionType", string(text))
	}
	return nil
}
