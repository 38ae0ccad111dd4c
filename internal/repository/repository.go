// Package repository содержит реализации хранилища данных банковского ядра:
// PostgreSQL для рабочего окружения и встраиваемую BoltDB для одиночного узла и тестов.
package repository

import (
	"context"
	"time"

	"github.com/mmeshcher/bankcore/internal/model"
)

// Имена транзакционных счётчиков.
const (
	SequenceCustomerPrefix = "customer:"
	SequenceAccountPrefix  = "account:"
)

// Tx описывает операции, доступные внутри одной атомарной транзакции хранилища.
// Все изменения, сделанные через Tx, фиксируются вместе либо не фиксируются вовсе.
type Tx interface {
	// NextSequence возвращает следующее значение именованного счётчика, начиная с 1.
	NextSequence(ctx context.Context, name string) (int64, error)

	CreateCustomer(ctx context.Context, c *model.Customer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	GetCustomerByDocument(ctx context.Context, docType model.DocumentType, number string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, c *model.Customer) error

	CreateAccount(ctx context.Context, a *model.Account) error
	GetAccount(ctx context.Context, number string) (*model.Account, error)
	// LockAccount читает счёт с блокировкой строки до конца транзакции.
	LockAccount(ctx context.Context, number string) (*model.Account, error)
	UpdateAccount(ctx context.Context, a *model.Account) error
	ListAccountsByCustomer(ctx context.Context, customerID int64) ([]model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)

	AppendMovement(ctx context.Context, m *model.Movement) (int64, error)
	// ListMovements возвращает движения по счёту в хронологическом порядке.
	ListMovements(ctx context.Context, accountNumber string) ([]model.Movement, error)
	// ListMovementsBetween возвращает движения всех счетов за полуинтервал [from, to).
	ListMovementsBetween(ctx context.Context, from, to time.Time) ([]model.Movement, error)

	CreateGarnishment(ctx context.Context, g *model.Garnishment) (int64, error)
	LockGarnishment(ctx context.Context, id int64) (*model.Garnishment, error)
	UpdateGarnishment(ctx context.Context, g *model.Garnishment) error
	ListGarnishments(ctx context.Context, accountNumber string, activeOnly bool) ([]model.Garnishment, error)

	// SaveExchangeRate сохраняет курс на дату, заменяя ранее зарегистрированный.
	SaveExchangeRate(ctx context.Context, r *model.ExchangeRate) error
	GetExchangeRate(ctx context.Context, day time.Time) (*model.ExchangeRate, error)
}

func documentKey(docType model.DocumentType, number string) string {
	return string(docType) + ":" + number
}
