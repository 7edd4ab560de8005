// Package store is the persistence collaborator: CRUD over the
// instrument and holding collections. Failures are wrapped in *Error and
// propagated — never swallowed.
package store

import (
	"fmt"

	"TradeWarden/internal/model"
)

// Error wraps a persistence failure with the operation that caused it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store persists instruments and holdings across sessions. FindInstrument
// and FindHolding return (nil, nil) when no row matches.
type Store interface {
	FindInstrument(symbol string) (*model.InstrumentRecord, error)
	AllInstruments() ([]model.InstrumentRecord, error)
	SaveInstrument(rec model.InstrumentRecord) error
	UpdateInstrumentWallet(symbol string, wallet float64) error
	DeleteInstrument(symbol string) error

	FindHolding(symbol string) (*model.HoldingRecord, error)
	AllHoldings() ([]model.HoldingRecord, error)
	SaveHolding(rec model.HoldingRecord) error
	UpdateHolding(rec model.HoldingRecord) error
	DeleteHolding(symbol string) error

	Close() error
}
