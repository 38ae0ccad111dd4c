// Package service реализует бизнес-логику банковского ядра: реестр клиентов,
// жизненный цикл счетов, движок операций и реестр курсов валют.
//
// Каждая операция выполняется внутри одной транзакции хранилища: все изменения
// остатков и все записи журнала фиксируются вместе либо не фиксируются вовсе.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/identity"
	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

// Store описывает транзакционное хранилище, используемое сервисом.
type Store interface {
	WithTx(ctx context.Context, fn func(repository.Tx) error) error
	WithReadTx(ctx context.Context, fn func(repository.Tx) error) error
	Close() error
}

// IdentityLookup описывает внешний реестр удостоверения личности.
type IdentityLookup interface {
	LookupPerson(ctx context.Context, nationalID string) (*identity.Person, error)
	LookupEntity(ctx context.Context, taxID string) (*identity.Entity, error)
}

// DefaultDepositAuthThreshold — порог суммы депозита в локальной валюте,
// выше которого обязательны код авторизации и происхождение средств.
var DefaultDepositAuthThreshold = decimal.NewFromInt(2000)

// Options задаёт параметры сервиса.
type Options struct {
	DepositAuthThreshold decimal.Decimal
	// Location определяет границы календарного дня для курсов, процентов и отчётов.
	Location *time.Location
	Now      func() time.Time
}

// Service содержит бизнес-логику банковского ядра.
type Service struct {
	store     Store
	identity  IdentityLookup
	logger    *zap.Logger
	threshold decimal.Decimal
	loc       *time.Location
	now       func() time.Time
}

// NewService создаёт сервис поверх хранилища и клиента реестра личности.
func NewService(store Store, lookup IdentityLookup, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DepositAuthThreshold.IsZero() {
		opts.DepositAuthThreshold = DefaultDepositAuthThreshold
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		identity:  lookup,
		logger:    logger,
		threshold: opts.DepositAuthThreshold,
		loc:       opts.Location,
		now:       opts.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Service) today() time.Time {
	return model.DateOf(s.now(), s.loc)
}

// operation несёт общие для всех записей одной операции атрибуты.
type operation struct {
	id    uuid.UUID
	actor string
	at    time.Time
}

func (s *Service) newOperation(actor string) operation {
	return operation{id: uuid.New(), actor: actor}
}

// stamp фиксирует время операции. Вызывается внутри транзакции после блокировки счетов,
// поэтому время движений следует порядку фиксации, в том числе при повторе транзакции.
func (s *Service) stamp(op *operation) {
	op.at = s.now()
}

func (op operation) movement(acc *model.Account, kind model.MovementKind, amount, before, after decimal.Decimal, description string) *model.Movement {
	return &model.Movement{
		TransactionID: op.id,
		AccountNumber: acc.Number,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		CreatedBy:     op.actor,
		CreatedAt:     op.at,
	}
}

// optionalRate возвращает курс на дату или nil, если курс не зарегистрирован.
func optionalRate(ctx context.Context, tx repository.Tx, day time.Time) (*model.ExchangeRate, error) {
	r, err := tx.GetExchangeRate(ctx, day)
	if err != nil {
		if errors.Is(err, model.ErrRateNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}
