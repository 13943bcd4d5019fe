package gateway

import (
	"context"
	"fmt"
	"time"

	"Fractrade/internal/domain/repository"
	"Fractrade/internal/service/ratelimit"
	xhttp "Fractrade/pkg/http"
	"Fractrade/pkg/logger"

	"github.com/sony/gobreaker"
)

// HTTPGatewayConfig tunes the remote execution gateway client.
type HTTPGatewayConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxOrdersPerSec int
	BreakerMaxFails int
	BreakerOpen     time.Duration
}

// HTTPGateway submits orders to a remote execution service over HTTP. A
// circuit breaker sheds load when the service degrades; a token bucket
// enforces the per-second order cap.
type HTTPGateway struct {
	cfg     HTTPGatewayConfig
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// NewHTTPGateway creates a gateway client for the given endpoint.
func NewHTTPGateway(cfg HTTPGatewayConfig, log *logger.Logger) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxOrdersPerSec <= 0 {
		cfg.MaxOrdersPerSec = 5
	}
	if cfg.BreakerMaxFails <= 0 {
		cfg.BreakerMaxFails = 5
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "execution-gateway",
		Timeout: cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerMaxFails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("gateway breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	})

	return &HTTPGateway{
		cfg:     cfg,
		client:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		breaker: breaker,
		limiter: ratelimit.New(),
		log:     log,
	}
}

func (g *HTTPGateway) SubmitOrder(ctx context.Context, req repository.OrderRequest) (*repository.OrderResult, error) {
	if !g.limiter.Allow("orders", float64(g.cfg.MaxOrdersPerSec), float64(g.cfg.MaxOrdersPerSec)) {
		return &repository.OrderResult{
			Filled: false,
			Reason: "order rate limit exceeded",
		}, nil
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		var out repository.OrderResult
		err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    g.cfg.BaseURL + "/orders",
			Body:   req,
		}, &out)
		if err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit order %s: %w", req.TradeID, err)
	}
	return res.(*repository.OrderResult), nil
}
