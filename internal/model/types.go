package model

import "time"

// ProductType is the broker product class an order is placed under.
// DELIVERY positions settle to the demat account; INTRADAY (MIS)
// positions are squared off the same session.
type ProductType string

const (
	ProductDelivery ProductType = "DELIVERY"
	ProductIntraday ProductType = "INTRADAY"
)

// Direction is the side a stage is exposed on.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Side indicates an order's transaction type.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// InstrumentRecord is the persisted shape of a tracked instrument.
// The wallet carries realized profit across repeated buy/sell cycles
// and outlives any single open trade on the symbol.
type InstrumentRecord struct {
	ID        string
	Symbol    string
	Exchange  string
	Wallet    float64
	CreatedAt time.Time
}

// HoldingRecord is the persisted shape of a multi-day open trade.
type HoldingRecord struct {
	Symbol        string
	BuyPrice      float64
	PositionPrice float64
	Quantity      int
	ProductType   ProductType
	Direction     Direction
}
