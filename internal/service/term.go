package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// TermSettlement содержит итог расчёта по срочному вкладу.
type TermSettlement struct {
	Account    *model.Account
	Principal  decimal.Decimal
	Interest   decimal.Decimal
	Total      decimal.Decimal
	NewAccount *model.Account
}

// RenewTermInput содержит условия нового срока вклада.
type RenewTermInput struct {
	AccountNumber string
	TermMonths    int
	MonthlyRate   decimal.Decimal
}

// settleTerm начисляет проценты и обнуляет срочный вклад, записывая INTEREST (если есть)
// и итоговое движение kind. Счёт закрывается без движения CLOSE.
func (s *Service) settleTerm(ctx context.Context, tx repository.Tx, op *operation, number string, kind model.MovementKind) (*TermSettlement, error) {
	acc, err := tx.LockAccount(ctx, number)
	if err != nil {
		return nil, err
	}
	s.stamp(op)
	if acc.Type != model.AccountTerm {
		return nil, model.ErrNotTermAccount
	}
	if acc.Status == model.StatusClosed {
		return nil, model.ErrAccountClosed
	}
	if acc.FullGarnish || acc.GarnishedAmount.IsPositive() {
		return nil, model.ErrAccountGarnished
	}

	principal := acc.Balance
	interest := acc.AccruedInterest(op.at, s.loc)
	total := principal.Add(interest)

	if interest.IsPositive() {
		m := op.movement(acc, model.MovementInterest, interest, principal, total, "term deposit interest")
		if _, err := tx.AppendMovement(ctx, m); err != nil {
			return nil, err
		}
	}

	description := "term deposit cancellation"
	if kind == model.MovementTermRenew {
		description = "term deposit renewal"
	}
	if _, err := tx.AppendMovement(ctx, op.movement(acc, kind, total, total, decimal.Zero, description)); err != nil {
		return nil, err
	}

	acc.Balance = decimal.Zero
	markClosed(acc, *op)
	if err := tx.UpdateAccount(ctx, acc); err != nil {
		return nil, err
	}

	return &TermSettlement{
		Account:   acc,
		Principal: principal,
		Interest:  interest,
		Total:     total,
	}, nil
}

// CancelTerm досрочно отменяет срочный вклад: начисляет проценты, обнуляет остаток и закрывает счёт.
func (s *Service) CancelTerm(ctx context.Context, actor string, number string) (*TermSettlement, error) {
	op := s.newOperation(actor)

	var res *TermSettlement
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = s.settleTerm(ctx, tx, &op, number, model.MovementTermCancel)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("term deposit cancelled",
		zap.String("account", number),
		zap.String("principal", res.Principal.String()),
		zap.String("interest", res.Interest.String()),
		zap.String("actor", actor),
	)
	return res, nil
}

// RenewTerm переоформляет срочный вклад: основная сумма с процентами переносится
// на новый срочный счёт того же клиента с новыми условиями, старый счёт закрывается.
func (s *Service) RenewTerm(ctx context.Context, actor string, in RenewTermInput) (*TermSettlement, error) {
	if in.TermMonths <= 0 || !in.MonthlyRate.IsPositive() {
		return nil, model.ErrTermFieldsRequired
	}

	op := s.newOperation(actor)

	var res *TermSettlement
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		res, err = s.settleTerm(ctx, tx, &op, in.AccountNumber, model.MovementTermRenew)
		if err != nil {
			return err
		}

		old := res.Account
		open := OpenAccountInput{
			CustomerID:  old.CustomerID,
			Type:        model.AccountTerm,
			Currency:    old.Currency,
			Principal:   res.Total,
			TermMonths:  in.TermMonths,
			MonthlyRate: in.MonthlyRate,
		}
		if err := validateOpen(&open); err != nil {
			return fmt.Errorf("renew %s: %w", old.Number, err)
		}

		res.NewAccount, err = s.openAccount(ctx, tx, op, open, old.Number)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("term deposit renewed",
		zap.String("account", in.AccountNumber),
		zap.String("new_account", res.NewAccount.Number),
		zap.String("total", res.Total.String()),
		zap.String("actor", actor),
	)
	return res, nil
}
