package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// GarnishmentInput описывает судебное постановление об аресте средств.
// При Full сумма Amount игнорируется.
type GarnishmentInput struct {
	AccountNumber string
	OrderNumber   string
	Authority     string
	Amount        decimal.Decimal
	Full          bool
	Notes         string
}

// Garnish регистрирует арест средств на счёте. Полный арест доводит арестованную сумму
// до текущего остатка, частичный увеличивает её, но не более остатка счёта.
func (s *Service) Garnish(ctx context.Context, actor string, in GarnishmentInput) (*model.Garnishment, error) {
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	in.Authority = strings.TrimSpace(in.Authority)
	if in.OrderNumber == "" {
		return nil, model.Validationf("order number is required")
	}
	if in.Authority == "" {
		return nil, model.Validationf("issuing authority is required")
	}
	if !in.Full {
		if err := checkAmount(in.Amount); err != nil {
			return nil, err
		}
	}

	op := s.newOperation(actor)

	var g *model.Garnishment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.LockAccount(ctx, in.AccountNumber)
		if err != nil {
			return err
		}
		s.stamp(&op)
		if acc.Status == model.StatusClosed {
			return model.ErrAccountClosed
		}

		var delta decimal.Decimal
		if in.Full {
			// Сумма действующих частичных арестов не уменьшается, даже если остаток ниже неё.
			target := decimal.Max(acc.Balance, acc.GarnishedAmount)
			delta = target.Sub(acc.GarnishedAmount)
			acc.FullGarnish = true
			acc.GarnishedAmount = target
		} else {
			if in.Amount.GreaterThan(acc.Balance) {
				return model.ErrGarnishmentExceedsBalance
			}
			delta = in.Amount
			acc.GarnishedAmount = acc.GarnishedAmount.Add(in.Amount)
		}
		if acc.Active {
			acc.Status = model.StatusGarnished
		}

		g = &model.Garnishment{
			AccountNumber: acc.Number,
			OrderNumber:   in.OrderNumber,
			Authority:     in.Authority,
			Amount:        delta,
			Full:          in.Full,
			Active:        true,
			Notes:         in.Notes,
			CreatedBy:     actor,
			CreatedAt:     op.at,
		}
		if _, err := tx.CreateGarnishment(ctx, g); err != nil {
			return err
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		m := op.movement(acc, model.MovementGarnish, delta, acc.Balance, acc.Balance,
			fmt.Sprintf("garnishment order %s by %s", g.OrderNumber, g.Authority))
		_, err = tx.AppendMovement(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("garnishment registered",
		zap.String("account", in.AccountNumber),
		zap.String("order", g.OrderNumber),
		zap.Bool("full", g.Full),
		zap.String("amount", g.Amount.String()),
		zap.String("actor", actor),
	)
	return g, nil
}

// ReleaseGarnishment снимает арест. Арестованная сумма счёта уменьшается на сумму
// постановления без повторной проверки остатка; признак полного ареста сохраняется,
// пока на счёте есть другое действующее полное постановление.
func (s *Service) ReleaseGarnishment(ctx context.Context, actor string, id int64) (*model.Garnishment, error) {
	op := s.newOperation(actor)

	var g *model.Garnishment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		g, err = tx.LockGarnishment(ctx, id)
		if err != nil {
			return err
		}
		if !g.Active {
			return model.ErrGarnishmentAlreadyReleased
		}

		acc, err := tx.LockAccount(ctx, g.AccountNumber)
		if err != nil {
			return err
		}
		s.stamp(&op)

		at := op.at
		g.Active = false
		g.ReleasedBy = actor
		g.ReleasedAt = &at
		if err := tx.UpdateGarnishment(ctx, g); err != nil {
			return err
		}

		remaining, err := tx.ListGarnishments(ctx, acc.Number, true)
		if err != nil {
			return err
		}

		acc.GarnishedAmount = acc.GarnishedAmount.Sub(g.Amount)
		if acc.GarnishedAmount.IsNegative() || len(remaining) == 0 {
			acc.GarnishedAmount = decimal.Zero
		}

		acc.FullGarnish = false
		for _, r := range remaining {
			if r.Full {
				acc.FullGarnish = true
				break
			}
		}

		if len(remaining) == 0 && acc.Status == model.StatusGarnished {
			acc.Status = model.StatusActive
		}
		if err := tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}

		m := op.movement(acc, model.MovementReleaseGarnish, g.Amount, acc.Balance, acc.Balance,
			fmt.Sprintf("release of garnishment order %s", g.OrderNumber))
		_, err = tx.AppendMovement(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("garnishment released",
		zap.String("account", g.AccountNumber),
		zap.String("order", g.OrderNumber),
		zap.String("actor", actor),
	)
	return g, nil
}

// Garnishments возвращает постановления по счёту; activeOnly оставляет только действующие.
func (s *Service) Garnishments(ctx context.Context, accountNumber string, activeOnly bool) ([]model.Garnishment, error) {
	var res []model.Garnishment
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, accountNumber); err != nil {
			return err
		}
		var err error
		res, err = tx.ListGarnishments(ctx, accountNumber, activeOnly)
		return err
	})
	return res, err
}
