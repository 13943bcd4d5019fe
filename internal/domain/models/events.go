package models

import "time"

// TradeEvent is the Kafka payload published on every lifecycle transition.
// The trade snapshot is the persistence unit; the event mirrors it for
// downstream consumers.
type TradeEvent struct {
	TradeID   string      `json:"trade_id"`
	Symbol    string      `json:"symbol"`
	Status    TradeStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"` // transition trigger
	Trade     *Trade      `json:"trade"`
	Timestamp time.Time   `json:"timestamp"`
}
