package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// Statement возвращает движения по счёту в хронологическом порядке.
func (s *Service) Statement(ctx context.Context, number string) ([]model.Movement, error) {
	var res []model.Movement
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, number); err != nil {
			return err
		}
		var err error
		res, err = tx.ListMovements(ctx, number)
		return err
	})
	return res, err
}

// VerifyLedger воспроизводит журнал счёта и проверяет, что цепочка остатков
// непрерывна и сходится к текущему остатку.
func (s *Service) VerifyLedger(ctx context.Context, number string) error {
	return s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.GetAccount(ctx, number)
		if err != nil {
			return err
		}
		movements, err := tx.ListMovements(ctx, number)
		if err != nil {
			return err
		}
		return replay(acc, movements)
	})
}

func replay(acc *model.Account, movements []model.Movement) error {
	balance := decimal.Zero
	for _, m := range movements {
		if !m.BalanceBefore.Equal(balance) {
			return fmt.Errorf("ledger of %s broken at movement %d: balance before %s, expected %s",
				acc.Number, m.ID, m.BalanceBefore, balance)
		}
		if want := expectedAfter(m); !m.BalanceAfter.Equal(want) {
			return fmt.Errorf("ledger of %s broken at movement %d: %s of %s moves %s to %s",
				acc.Number, m.ID, m.Kind, m.Amount, m.BalanceBefore, m.BalanceAfter)
		}
		balance = m.BalanceAfter
	}
	if !balance.Equal(acc.Balance) {
		return fmt.Errorf("ledger of %s replays to %s, account balance is %s", acc.Number, balance, acc.Balance)
	}
	return nil
}

func expectedAfter(m model.Movement) decimal.Decimal {
	switch m.Kind {
	case model.MovementDeposit, model.MovementTransferIn, model.MovementInterest, model.MovementOpen:
		return m.BalanceBefore.Add(m.Amount)
	case model.MovementWithdrawal, model.MovementTransferOut, model.MovementTermCancel, model.MovementTermRenew:
		return m.BalanceBefore.Sub(m.Amount)
	case model.MovementClose, model.MovementGarnish, model.MovementReleaseGarnish:
		return m.BalanceBefore
	default:
		return m.BalanceAfter
	}
}

// DailySummary собирает сводку операций за календарный день day.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	date := model.DateOf(day, s.loc)
	y, m, d := date.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	summary := &model.DailySummary{
		Date:             date,
		ByKind:           make(map[model.MovementKind]int),
		ByUser:           make(map[string]int),
		Deposits:         map[model.Currency]decimal.Decimal{model.CurrencyLocal: decimal.Zero, model.CurrencyForeign: decimal.Zero},
		Withdrawals:      map[model.Currency]decimal.Decimal{model.CurrencyLocal: decimal.Zero, model.CurrencyForeign: decimal.Zero},
		DepositsLocal:    decimal.Zero,
		WithdrawalsLocal: decimal.Zero,
	}

	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		rate, err := optionalRate(ctx, tx, date)
		if err != nil {
			return err
		}
		summary.Rate = rate

		movements, err := tx.ListMovementsBetween(ctx, from, to)
		if err != nil {
			return err
		}

		currencies := make(map[string]model.Currency)
		for _, mv := range movements {
			summary.TotalOperations++
			summary.ByKind[mv.Kind]++
			summary.ByUser[mv.CreatedBy]++

			if mv.Kind != model.MovementDeposit && mv.Kind != model.MovementWithdrawal {
				if mv.Kind == model.MovementTransferOut {
					summary.Transfers++
				}
				continue
			}

			currency, ok := currencies[mv.AccountNumber]
			if !ok {
				acc, err := tx.GetAccount(ctx, mv.AccountNumber)
				if err != nil {
					return err
				}
				currency = acc.Currency
				currencies[mv.AccountNumber] = currency
			}

			local := model.LocalEquivalent(mv.Amount, currency, rate)
			if mv.Kind == model.MovementDeposit {
				summary.Deposits[currency] = summary.Deposits[currency].Add(mv.Amount)
				summary.DepositsLocal = summary.DepositsLocal.Add(local)
			} else {
				summary.Withdrawals[currency] = summary.Withdrawals[currency].Add(mv.Amount)
				summary.WithdrawalsLocal = summary.WithdrawalsLocal.Add(local)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.DepositsLocal = summary.DepositsLocal.Round(2)
	summary.WithdrawalsLocal = summary.WithdrawalsLocal.Round(2)
	return summary, nil
}
