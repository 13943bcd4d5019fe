package models

// Requests for the trading HTTP API. Defined in domain for consistency and reuse.

type FractalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type TradesRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Status string `query:"status" json:"status" validate:"omitempty,oneof=PENDING OPEN CLOSED CANCELLED"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type CloseTradeRequest struct {
	ID string `param:"id" json:"id" validate:"required"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Since  string `query:"since" json:"since,omitempty"` // RFC3339 or unix seconds
	Limit  int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
