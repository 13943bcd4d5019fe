package gateway

import (
	"context"
	"fmt"
	"sync/atomic"

	"Fractrade/internal/domain/repository"
)

// PriceSource provides the last observed close for a symbol. The bar
// collector implements it.
type PriceSource interface {
	LastClose(symbol string) (float64, bool)
}

// PaperGateway fills every order instantly at the last observed close. It
// exists so the full lifecycle can run without an exchange account.
type PaperGateway struct {
	prices PriceSource
	seq    atomic.Uint64
}

// NewPaperGateway creates a simulated execution gateway. The price source
// can be bound after construction because the collector that provides it
// sits downstream of the engine.
func NewPaperGateway(prices PriceSource) *PaperGateway {
	return &PaperGateway{prices: prices}
}

// BindPrices attaches the live price source. Must be called before any
// order is submitted.
func (g *PaperGateway) BindPrices(prices PriceSource) {
	g.prices = prices
}

func (g *PaperGateway) SubmitOrder(ctx context.Context, req repository.OrderRequest) (*repository.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	price := req.LimitPrice
	if g.prices != nil {
		if p, ok := g.prices.LastClose(req.Symbol); ok {
			price = p
		}
	}
	if price <= 0 {
		return &repository.OrderResult{
			Filled: false,
			Reason: "no price available",
		}, nil
	}

	return &repository.OrderResult{
		OrderID:   fmt.Sprintf("paper-%d", g.seq.Add(1)),
		Filled:    true,
		FillPrice: price,
	}, nil
}
