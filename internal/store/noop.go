package store

import "TradeWarden/internal/model"

// NoopStore is used when no database is configured; nothing survives the
// session.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) FindInstrument(string) (*model.InstrumentRecord, error) { return nil, nil }
func (n *NoopStore) AllInstruments() ([]model.InstrumentRecord, error)      { return nil, nil }
func (n *NoopStore) SaveInstrument(model.InstrumentRecord) error            { return nil }
func (n *NoopStore) UpdateInstrumentWallet(string, float64) error           { return nil }
func (n *NoopStore) DeleteInstrument(string) error                          { return nil }
func (n *NoopStore) FindHolding(string) (*model.HoldingRecord, error)       { return nil, nil }
func (n *NoopStore) AllHoldings() ([]model.HoldingRecord, error)            { return nil, nil }
func (n *NoopStore) SaveHolding(model.HoldingRecord) error                  { return nil }
func (n *NoopStore) UpdateHolding(model.HoldingRecord) error                { return nil }
func (n *NoopStore) DeleteHolding(string) error                             { return nil }
func (n *NoopStore) Close() error                                           { return nil }
