package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// OpenAccountInput содержит параметры открываемого счёта.
type OpenAccountInput struct {
	CustomerID int64
	Type       model.AccountType
	Currency   model.Currency

	OverdraftLimit decimal.Decimal

	Principal   decimal.Decimal
	TermMonths  int
	MonthlyRate decimal.Decimal
}

func validateOpen(in *OpenAccountInput) error {
	if _, err := model.AccountPrefix(in.Type, in.Currency); err != nil {
		return err
	}

	switch in.Type {
	case model.AccountSavings:
		in.OverdraftLimit = decimal.Zero
		in.Principal, in.TermMonths, in.MonthlyRate = decimal.Zero, 0, decimal.Zero
	case model.AccountChecking:
		if in.OverdraftLimit.IsNegative() {
			return model.Validationf("overdraft limit cannot be negative")
		}
		if !model.FitsScale(in.OverdraftLimit, model.MoneyScale) {
			return model.Validationf("overdraft limit must have at most %d decimal places", model.MoneyScale)
		}
		in.Principal, in.TermMonths, in.MonthlyRate = decimal.Zero, 0, decimal.Zero
	case model.AccountTerm:
		if !in.Principal.IsPositive() || in.TermMonths <= 0 || !in.MonthlyRate.IsPositive() {
			return model.ErrTermFieldsRequired
		}
		if !model.FitsScale(in.Principal, model.MoneyScale) {
			return model.ErrAmountPrecision
		}
		if !model.FitsScale(in.MonthlyRate, model.RateScale) {
			return model.Validationf("monthly rate must have at most %d decimal places", model.RateScale)
		}
		in.OverdraftLimit = decimal.Zero
	}
	return nil
}

// OpenAccount открывает счёт клиенту и записывает движение OPEN.
// Срочный вклад открывается с остатком, равным основной сумме.
func (s *Service) OpenAccount(ctx context.Context, actor string, in OpenAccountInput) (*model.Account, error) {
	if err := validateOpen(&in); err != nil {
		return nil, err
	}

	op := s.newOperation(actor)

	var acc *model.Account
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		s.stamp(&op)

		customer, err := tx.GetCustomer(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if !customer.Active {
			return model.ErrCustomerInactive
		}

		acc, err = s.openAccount(ctx, tx, op, in, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account opened",
		zap.String("account", acc.Number),
		zap.String("type", string(acc.Type)),
		zap.String("currency", string(acc.Currency)),
		zap.String("actor", actor),
	)

	return acc, nil
}

// openAccount создаёт счёт внутри транзакции tx. Вход должен быть проверен validateOpen.
func (s *Service) openAccount(ctx context.Context, tx repository.Tx, op operation, in OpenAccountInput, renewedFrom string) (*model.Account, error) {
	prefix, err := model.AccountPrefix(in.Type, in.Currency)
	if err != nil {
		return nil, err
	}

	seq, err := tx.NextSequence(ctx, repository.SequenceAccountPrefix+prefix)
	if err != nil {
		return nil, err
	}

	acc := &model.Account{
		Number:          model.FormatAccountNumber(prefix, seq),
		CustomerID:      in.CustomerID,
		Type:            in.Type,
		Currency:        in.Currency,
		Balance:         decimal.Zero,
		Status:          model.StatusActive,
		Active:          true,
		GarnishedAmount: decimal.Zero,
		OverdraftLimit:  in.OverdraftLimit,
		Principal:       in.Principal,
		TermMonths:      in.TermMonths,
		MonthlyRate:     in.MonthlyRate,
		RenewedFrom:     renewedFrom,
		OpenedBy:        op.actor,
		OpenedAt:        op.at,
		LastMovementAt:  op.at,
	}

	if in.Type == model.AccountTerm {
		acc.Balance = in.Principal
		maturity := model.AddMonths(model.DateOf(op.at, s.loc), in.TermMonths)
		acc.MaturityDate = &maturity
	}

	if err := tx.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	description := "account opened"
	if renewedFrom != "" {
		description = fmt.Sprintf("renewal of term account %s", renewedFrom)
	}
	if _, err := tx.AppendMovement(ctx, op.movement(acc, model.MovementOpen, acc.Balance, decimal.Zero, acc.Balance, description)); err != nil {
		return nil, err
	}

	return acc, nil
}

// CloseAccount закрывает счёт с нулевым остатком и без арестов, записывая движение CLOSE.
func (s *Service) CloseAccount(ctx context.Context, actor string, number string) (*model.Account, error) {
	op := s.newOperation(actor)

	var acc *model.Account
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		acc, err = tx.LockAccount(ctx, number)
		if err != nil {
			return err
		}
		s.stamp(&op)
		if acc.Status == model.StatusClosed {
			return model.ErrAccountClosed
		}
		if !acc.CanClose() {
			return model.ErrCannotClose
		}

		if _, err := tx.AppendMovement(ctx, op.movement(acc, model.MovementClose, decimal.Zero, acc.Balance, acc.Balance, "account closed")); err != nil {
			return err
		}

		markClosed(acc, op)
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account closed", zap.String("account", number), zap.String("actor", actor))
	return acc, nil
}

func markClosed(acc *model.Account, op operation) {
	at := op.at
	acc.Status = model.StatusClosed
	acc.Active = false
	acc.ClosedAt = &at
	acc.LastMovementAt = op.at
}

// DeactivateAccount переводит счёт в состояние INACTIVE без изменения остатка.
func (s *Service) DeactivateAccount(ctx context.Context, actor string, number string) (*model.Account, error) {
	return s.setAccountActive(ctx, actor, number, false)
}

// ReactivateAccount возвращает счёт в работу. Счёт с действующими арестами получает статус GARNISHED.
func (s *Service) ReactivateAccount(ctx context.Context, actor string, number string) (*model.Account, error) {
	return s.setAccountActive(ctx, actor, number, true)
}

func (s *Service) setAccountActive(ctx context.Context, actor, number string, active bool) (*model.Account, error) {
	var acc *model.Account
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		acc, err = tx.LockAccount(ctx, number)
		if err != nil {
			return err
		}
		if acc.Status == model.StatusClosed {
			return model.ErrAccountClosed
		}

		acc.Active = active
		switch {
		case !active:
			acc.Status = model.StatusInactive
		case acc.FullGarnish || acc.GarnishedAmount.IsPositive():
			acc.Status = model.StatusGarnished
		default:
			acc.Status = model.StatusActive
		}
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status changed",
		zap.String("account", number),
		zap.String("status", string(acc.Status)),
		zap.String("actor", actor),
	)
	return acc, nil
}

// GetAccount возвращает счёт по номеру.
func (s *Service) GetAccount(ctx context.Context, number string) (*model.Account, error) {
	var acc *model.Account
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, number)
		return err
	})
	return acc, err
}

// AvailableBalance возвращает доступный остаток счёта.
func (s *Service) AvailableBalance(ctx context.Context, number string) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, number)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.AvailableBalance(), nil
}

// AccruedInterest возвращает проценты, начисленные по срочному вкладу на текущий момент.
func (s *Service) AccruedInterest(ctx context.Context, number string) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, number)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.AccruedInterest(s.now(), s.loc), nil
}

// AccountsDueForInactivation возвращает счета с нулевым остатком без движений более 90 дней.
// Сервис их не деактивирует: решение принимает внешний планировщик.
func (s *Service) AccountsDueForInactivation(ctx context.Context) ([]model.Account, error) {
	now := s.now()
	res := make([]model.Account, 0)
	err := s.store.WithReadTx(ctx, func(tx repository.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.DueForInactivation(now) {
				res = append(res, a)
			}
		}
		return nil
	})
	return res, err
}
