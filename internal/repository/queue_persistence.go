package repository

import (
	"context"
	"time"

	"Fractrade/internal/domain/models"
	"Fractrade/internal/domain/repository"
	"Fractrade/pkg/logger"
	"Fractrade/pkg/queue"
)

const (
	jobTradeUpsert   = "trade.upsert"
	jobRiskStateSave = "riskstate.save"
)

// TradeUpsertJob writes queued trade snapshots to the trade store.
type TradeUpsertJob struct {
	store repository.TradeStore
}

func NewTradeUpsertJob(store repository.TradeStore) *TradeUpsertJob {
	return &TradeUpsertJob{store: store}
}

func (j *TradeUpsertJob) Name() string { return "trade-upsert" }
func (j *TradeUpsertJob) Type() string { return jobTradeUpsert }

func (j *TradeUpsertJob) Handle(ctx context.Context, payload interface{}) error {
	t, err := queue.ParsePayload[models.Trade](payload)
	if err != nil {
		return err
	}
	return j.store.UpsertTrade(ctx, t)
}

// RiskStateSaveJob writes queued risk snapshots to the risk store.
type RiskStateSaveJob struct {
	store repository.RiskStore
}

func NewRiskStateSaveJob(store repository.RiskStore) *RiskStateSaveJob {
	return &RiskStateSaveJob{store: store}
}

func (j *RiskStateSaveJob) Name() string { return "riskstate-save" }
func (j *RiskStateSaveJob) Type() string { return jobRiskStateSave }

func (j *RiskStateSaveJob) Handle(ctx context.Context, payload interface{}) error {
	st, err := queue.ParsePayload[models.RiskState](payload)
	if err != nil {
		return err
	}
	return j.store.Save(ctx, st)
}

// QueuePersistence hands trade and risk snapshots to the Redis queue. The
// hot path never blocks on storage; failed writes are retried by the queue.
type QueuePersistence struct {
	rq  *queue.RedisQueue
	log *logger.Logger
}

func NewQueuePersistence(rq *queue.RedisQueue, log *logger.Logger) *QueuePersistence {
	return &QueuePersistence{rq: rq, log: log}
}

func (p *QueuePersistence) EnqueueTrade(t models.Trade) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rq.Enqueue(ctx, jobTradeUpsert, t); err != nil {
		p.log.Error("enqueue trade snapshot",
			logger.String("trade_id", t.ID),
			logger.Error(err))
	}
}

func (p *QueuePersistence) EnqueueRiskState(st models.RiskState) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rq.Enqueue(ctx, jobRiskStateSave, st); err != nil {
		p.log.Error("enqueue risk state snapshot", logger.Error(err))
	}
}
