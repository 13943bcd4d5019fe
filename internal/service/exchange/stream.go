package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"Fractrade/internal/domain/models"
	"Fractrade/pkg/logger"

	"github.com/gorilla/websocket"
)

// KlineStream implements repository.BarStream against the Binance combined
// kline stream. Only closed candles are forwarded; a still-forming candle
// never reaches the pipeline.
type KlineStream struct {
	baseURL        string
	symbols        []string
	timeframes     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewKlineStream creates a stream for the configured symbols and timeframes.
func NewKlineStream(baseURL string, symbols, timeframes []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *KlineStream {
	return &KlineStream{
		baseURL:        baseURL,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// streamName builds the combined-stream segment for one (symbol, timeframe).
// "BTC/USDT" + "1h" becomes "btcusdt@kline_1h".
func streamName(symbol, tf string) string {
	s := strings.ToLower(strings.ReplaceAll(symbol, "/", ""))
	return s + "@kline_" + tf
}

// Connect dials the combined stream with all subscriptions in the URL.
func (c *KlineStream) Connect(ctx context.Context) error {
	streams := make([]string, 0, len(c.symbols)*len(c.timeframes))
	for _, sym := range c.symbols {
		for _, tf := range c.timeframes {
			streams = append(streams, streamName(sym, tf))
		}
	}
	u := fmt.Sprintf("%s?streams=%s", c.baseURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("exchange connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.log.Info("exchange stream connected", logger.Int("streams", len(streams)))
	return nil
}

// Subscribe is a no-op: subscriptions travel in the connect URL.
func (c *KlineStream) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("exchange stream not connected")
	}
	return nil
}

// combined-stream envelope and kline payload
type wsEnvelope struct {
	Stream string  `json:"stream"`
	Data   wsKline `json:"data"`
}

type wsKline struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartTime int64  `json:"t"` // ms
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// Read streams closed bars and errors. The error channel carries exactly one
// error: the caller reconnects and calls Read again.
func (c *KlineStream) Read(ctx context.Context) (<-chan *models.PriceBar, <-chan error) {
	bars := make(chan *models.PriceBar, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(bars)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("exchange conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("exchange read: %w", err)
					return
				}

				var env wsEnvelope
				if err := json.Unmarshal(b, &env); err != nil {
					continue // non-kline frame
				}
				if env.Data.EventType != "kline" || !env.Data.Kline.Closed {
					continue
				}

				bar, err := c.toBar(env.Data)
				if err != nil {
					c.log.Warn("malformed kline dropped",
						logger.String("stream", env.Stream),
						logger.Error(err))
					continue
				}
				select {
				case bars <- bar:
				default:
					c.log.Warn("bar dropped on backpressure", logger.String("symbol", bar.Symbol))
				}
			}
		}
	}()

	return bars, errs
}

func (c *KlineStream) toBar(k wsKline) (*models.PriceBar, error) {
	open, err := strconv.ParseFloat(k.Kline.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.Kline.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Kline.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parse low: %w", err)
	}
	closeP, err := strconv.ParseFloat(k.Kline.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parse close: %w", err)
	}
	vol, err := strconv.ParseFloat(k.Kline.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}

	return &models.PriceBar{
		Symbol:    c.canonicalSymbol(k.Symbol),
		Timeframe: k.Kline.Interval,
		Timestamp: time.UnixMilli(k.Kline.StartTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    vol,
	}, nil
}

// canonicalSymbol maps the exchange form back to the configured form, since
// Binance reports "BTCUSDT" for a "BTC/USDT" subscription.
func (c *KlineStream) canonicalSymbol(raw string) string {
	for _, sym := range c.symbols {
		if strings.EqualFold(strings.ReplaceAll(sym, "/", ""), raw) {
			return sym
		}
	}
	return raw
}

// Reconnect closes and reconnects with the configured delay.
func (c *KlineStream) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *KlineStream) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates connection status.
func (c *KlineStream) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
