package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
)

type idleAccountsSource interface {
	AccountsDueForInactivation(ctx context.Context) ([]model.Account, error)
}

// watchIdleAccounts периодически пишет в журнал счета, подлежащие деактивации.
// Состояние счетов не меняет. Блокируется до отмены ctx.
func watchIdleAccounts(ctx context.Context, src idleAccountsSource, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := src.AccountsDueForInactivation(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("idle accounts check failed", zap.Error(err))
				}
				continue
			}
			if len(due) == 0 {
				continue
			}
			numbers := make([]string, 0, len(due))
			for _, a := range due {
				numbers = append(numbers, a.Number)
			}
			logger.Info("accounts due for inactivation",
				zap.Int("count", len(due)),
				zap.Strings("accounts", numbers),
			)
		}
	}
}
