package services

import "github.com/shopspring/decimal"

// AmountTolerance is the largest accepted gap between client and server totals.
var AmountTolerance = decimal.RequireFromString("0.01")

// LineInput is one cart line as submitted by the client.
type LineInput struct {
	Price    float64
	Quantity int
}

// Totals is the server-side recomputation of an order's amounts.
type Totals struct {
	Lines    []decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals recomputes line totals as price x quantity, the subtotal as
// their sum and the total as subtotal plus tax. Nothing is rounded.
func ComputeTotals(lines []LineInput, tax float64) Totals {
	t := Totals{
		Lines:    make([]decimal.Decimal, len(lines)),
		Subtotal: decimal.Zero,
		Tax:      decimal.NewFromFloat(tax),
	}
	for i, l := range lines {
		line := decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
		t.Lines[i] = line
		t.Subtotal = t.Subtotal.Add(line)
	}
	t.Total = t.Subtotal.Add(t.Tax)
	return t
}

// WithinTolerance reports whether submitted is no further than
// AmountTolerance from computed.
func WithinTolerance(computed decimal.Decimal, submitted float64) bool {
	return computed.Sub(decimal.NewFromFloat(submitted)).Abs().LessThanOrEqual(AmountTolerance)
}
