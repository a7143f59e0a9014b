package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/analytics"
	"bitbucket.org/mmdatafocus/ledger_analytics/models/reports"
)

var errLedgerNotReady = errors.New("ledger is not connected yet")

// lazyLedger forwards to a reports.Ledger installed after startup.
type lazyLedger struct {
	target atomic.Pointer[reports.Ledger]
}

func (l *lazyLedger) bind(target reports.Ledger) {
	l.target.Store(&target)
}

func (l *lazyLedger) ready() bool {
	return l.target.Load() != nil
}

func (l *lazyLedger) get() (reports.Ledger, error) {
	p := l.target.Load()
	if p == nil {
		return nil, errLedgerNotReady
	}
	return *p, nil
}

func (l *lazyLedger) ReadTransactions(ctx context.Context, from, to time.Time, customerKey *string) ([]analytics.Transaction, error) {
	target, err := l.get()
	if err != nil {
		return nil, err
	}
	return target.ReadTransactions(ctx, from, to, customerKey)
}

func (l *lazyLedger) ReadExpenses(ctx context.Context, from, to time.Time, category *string) ([]analytics.Expense, error) {
	target, err := l.get()
	if err != nil {
		return nil, err
	}
	return target.ReadExpenses(ctx, from, to, category)
}

func (l *lazyLedger) ReadProducts(ctx context.Context) ([]analytics.Product, error) {
	target, err := l.get()
	if err != nil {
		return nil, err
	}
	return target.ReadProducts(ctx)
}
