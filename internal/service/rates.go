package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// SetDailyRate регистрирует курс на текущий день. Повторная регистрация в тот же день заменяет курс.
func (s *Service) SetDailyRate(ctx context.Context, actor string, buy, sell decimal.Decimal) (*model.ExchangeRate, error) {
	r := &model.ExchangeRate{
		Date:         s.today(),
		Buy:          buy,
		Sell:         sell,
		RegisteredBy: actor,
		RegisteredAt: s.now(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.SaveExchangeRate(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("exchange rate registered",
		zap.Time("date", r.Date),
		zap.String("buy", buy.String()),
		zap.String("sell", sell.String()),
		zap.String("actor", actor),
	)
	return r, nil
}

// RateFor возвращает курс на календарную дату day.
func (s *Service) RateFor(ctx context.Context, day time.Time) (*model.ExchangeRate, error) {
	var r *model.ExchangeRate
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		var err error
		r, err = tx.GetExchangeRate(ctx, model.DateOf(day, s.loc))
		return err
	})
	return r, err
}

// CurrentRate возвращает курс текущего дня или nil, если он не зарегистрирован.
func (s *Service) CurrentRate(ctx context.Context) (*model.ExchangeRate, error) {
	r, err := s.RateFor(ctx, s.now())
	if errors.Is(err, model.ErrRateNotFound) {
		return nil, nil
	}
	return r, err
}

// IsRateConfigured сообщает, зарегистрирован ли курс на текущий день.
func (s *Service) IsRateConfigured(ctx context.Context) (bool, error) {
	r, err := s.CurrentRate(ctx)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}

// Convert пересчитывает сумму между валютами по курсу текущего дня.
// Возвращает ErrRateNotConfigured, если валюты различаются, а курса нет.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to model.Currency) (decimal.Decimal, decimal.Decimal, error) {
	if from == to {
		return amount, decimal.NewFromInt(1), nil
	}
	r, err := s.CurrentRate(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if r == nil {
		return decimal.Zero, decimal.Zero, model.ErrRateNotConfigured
	}
	converted, used := r.Convert(amount, from, to)
	return converted, used, nil
}
