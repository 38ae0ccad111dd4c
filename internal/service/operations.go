package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// DepositInput описывает внесение средств на счёт.
type DepositInput struct {
	AccountNumber     string
	Amount            decimal.Decimal
	AuthorizationCode string
	FundsOrigin       string
	Description       string
}

// WithdrawalInput описывает снятие средств со счёта.
type WithdrawalInput struct {
	AccountNumber string
	Amount        decimal.Decimal
	Description   string
}

// TransferInput описывает перевод между счетами. Amount задан в валюте счёта-источника.
type TransferInput struct {
	From        string
	To          string
	Amount      decimal.Decimal
	Description string
}

// TransferResult содержит обе записи перевода.
type TransferResult struct {
	Out *model.Movement
	In  *model.Movement
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return model.ErrNonPositiveAmount
	}
	if !model.FitsScale(amount, model.MoneyScale) {
		return model.ErrAmountPrecision
	}
	return nil
}

func checkCredit(acc *model.Account) error {
	if !acc.IsOperable() {
		return model.ErrAccountNotOperable
	}
	if acc.Type == model.AccountTerm {
		return model.ErrTermDeposit
	}
	return nil
}

// Deposit вносит средства на счёт. Если сумма в локальной валюте превышает порог,
// код авторизации и происхождение средств обязательны.
func (s *Service) Deposit(ctx context.Context, actor string, in DepositInput) (*model.Movement, error) {
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	in.AuthorizationCode = strings.TrimSpace(in.AuthorizationCode)
	in.FundsOrigin = strings.TrimSpace(in.FundsOrigin)

	op := s.newOperation(actor)

	var m *model.Movement
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.LockAccount(ctx, in.AccountNumber)
		if err != nil {
			return err
		}
		s.stamp(&op)
		if err := checkCredit(acc); err != nil {
			return err
		}

		rate, err := optionalRate(ctx, tx, s.today())
		if err != nil {
			return err
		}
		requiresAuth := model.LocalEquivalent(in.Amount, acc.Currency, rate).GreaterThan(s.threshold)
		if requiresAuth && (in.AuthorizationCode == "" || in.FundsOrigin == "") {
			return model.ErrAuthorizationRequired
		}

		before := acc.Balance
		acc.Balance = acc.Balance.Add(in.Amount)
		acc.LastMovementAt = op.at
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		m = op.movement(acc, model.MovementDeposit, in.Amount, before, acc.Balance, describe(in.Description, "deposit"))
		m.RequiresAuthorization = requiresAuth
		m.AuthorizationCode = in.AuthorizationCode
		m.FundsOrigin = in.FundsOrigin
		_, err = tx.AppendMovement(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit posted",
		zap.String("account", in.AccountNumber),
		zap.String("amount", in.Amount.String()),
		zap.Bool("requires_authorization", m.RequiresAuthorization),
		zap.String("tx", op.id.String()),
		zap.String("actor", actor),
	)
	return m, nil
}

// Withdraw снимает средства со счёта в пределах доступного остатка
// (с учётом овердрафта для расчётного счёта).
func (s *Service) Withdraw(ctx context.Context, actor string, in WithdrawalInput) (*model.Movement, error) {
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}

	op := s.newOperation(actor)

	var m *model.Movement
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.LockAccount(ctx, in.AccountNumber)
		if err != nil {
			return err
		}
		s.stamp(&op)
		if err := acc.CheckWithdrawal(in.Amount); err != nil {
			return err
		}

		before := acc.Balance
		acc.Balance = acc.Balance.Sub(in.Amount)
		acc.LastMovementAt = op.at
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		m = op.movement(acc, model.MovementWithdrawal, in.Amount, before, acc.Balance, describe(in.Description, "withdrawal"))
		_, err = tx.AppendMovement(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal posted",
		zap.String("account", in.AccountNumber),
		zap.String("amount", in.Amount.String()),
		zap.String("tx", op.id.String()),
		zap.String("actor", actor),
	)
	return m, nil
}

// Transfer переводит средства между счетами. Для разных валют нужен курс текущего дня:
// LOCAL→FOREIGN делится на курс продажи, FOREIGN→LOCAL умножается на курс покупки.
func (s *Service) Transfer(ctx context.Context, actor string, in TransferInput) (*TransferResult, error) {
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.From == in.To {
		return nil, model.ErrSameAccount
	}

	op := s.newOperation(actor)

	var res *TransferResult
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		origin, destination, err := lockPair(ctx, tx, in.From, in.To)
		if err != nil {
			return err
		}
		s.stamp(&op)

		if err := origin.CheckWithdrawal(in.Amount); err != nil {
			return err
		}
		if err := checkCredit(destination); err != nil {
			return err
		}

		credited := in.Amount
		var rateUsed decimal.NullDecimal
		if origin.Currency != destination.Currency {
			rate, err := tx.GetExchangeRate(ctx, s.today())
			if err != nil {
				if errors.Is(err, model.ErrRateNotFound) {
					return model.ErrRateNotConfigured
				}
				return err
			}
			var used decimal.Decimal
			credited, used = rate.Convert(in.Amount, origin.Currency, destination.Currency)
			rateUsed = decimal.NullDecimal{Decimal: used, Valid: true}
			if !credited.IsPositive() {
				return model.Validationf("converted amount rounds to zero")
			}
		}

		originBefore := origin.Balance
		origin.Balance = origin.Balance.Sub(in.Amount)
		origin.LastMovementAt = op.at

		destinationBefore := destination.Balance
		destination.Balance = destination.Balance.Add(credited)
		destination.LastMovementAt = op.at

		if err := tx.UpdateAccount(ctx, origin); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, destination); err != nil {
			return err
		}

		out := op.movement(origin, model.MovementTransferOut, in.Amount, originBefore, origin.Balance,
			describe(in.Description, fmt.Sprintf("transfer to %s", destination.Number)))
		out.CounterpartAccount = destination.Number
		out.ExchangeRate = rateUsed

		inc := op.movement(destination, model.MovementTransferIn, credited, destinationBefore, destination.Balance,
			describe(in.Description, fmt.Sprintf("transfer from %s", origin.Number)))
		inc.CounterpartAccount = origin.Number
		inc.ExchangeRate = rateUsed

		if _, err := tx.AppendMovement(ctx, out); err != nil {
			return err
		}
		if _, err := tx.AppendMovement(ctx, inc); err != nil {
			return err
		}

		res = &TransferResult{Out: out, In: inc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer posted",
		zap.String("from", in.From),
		zap.String("to", in.To),
		zap.String("debited", res.Out.Amount.String()),
		zap.String("credited", res.In.Amount.String()),
		zap.String("tx", op.id.String()),
		zap.String("actor", actor),
	)
	return res, nil
}

// lockPair блокирует оба счёта в порядке возрастания номеров, чтобы встречные
// переводы не приводили к взаимной блокировке.
func lockPair(ctx context.Context, tx repository.Tx, from, to string) (*model.Account, *model.Account, error) {
	first, second := from, to
	if second < first {
		first, second = second, first
	}

	a, err := tx.LockAccount(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.LockAccount(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == from {
		return a, b, nil
	}
	return b, a, nil
}

func describe(description, fallback string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return fallback
}
