package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/moda-commerce/moda-backend/pkg/logger"
)

type tradeCompleter interface {
	AutoCompleteDue(ctx context.Context, now time.Time) (int, error)
}

type TradeAutoCompleteJobParams struct {
	Logger *logger.Logger
	Trades tradeCompleter
}

// NewTradeAutoCompleteJob builds the job that completes delivered trades
// once their dispute window has closed.
func NewTradeAutoCompleteJob(params TradeAutoCompleteJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Trades == nil {
		return nil, fmt.Errorf("trade service required")
	}
	return &tradeAutoCompleteJob{
		logg:   params.Logger,
		trades: params.Trades,
		now:    time.Now,
	}, nil
}

type tradeAutoCompleteJob struct {
	logg   *logger.Logger
	trades tradeCompleter
	now    func() time.Time
}

func (j *tradeAutoCompleteJob) Name() string { return "trade-auto-complete" }

func (j *tradeAutoCompleteJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	completed, err := j.trades.AutoCompleteDue(ctx, now)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":     now,
		"completed": completed,
	})
	if err != nil {
		return fmt.Errorf("trade auto-complete: %w", err)
	}
	j.logg.Info(logCtx, "trade auto-complete pass finished")
	return nil
}
