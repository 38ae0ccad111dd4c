package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/bankcore/internal/identity"
	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/repository"
)

const operator = "teller1"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubIdentity struct {
	person *identity.Person
	entity *identity.Entity
	err    error
	calls  int
}

func (s *stubIdentity) LookupPerson(ctx context.Context, nationalID string) (*identity.Person, error) {
	s.calls++
	return s.person, s.err
}

func (s *stubIdentity) LookupEntity(ctx context.Context, taxID string) (*identity.Entity, error) {
	s.calls++
	return s.entity, s.err
}

type testEnv struct {
	svc   *Service
	clock *testClock
	docs  int
}

func newTestEnv(t *testing.T, lookup IdentityLookup) *testEnv {
	t.Helper()

	store, err := repository.NewBoltStore(filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)}
	svc := NewService(store, lookup, zap.NewNop(), Options{Now: clock.Now})
	t.Cleanup(func() { svc.Close() })

	return &testEnv{svc: svc, clock: clock}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) customer(t *testing.T) *model.Customer {
	t.Helper()
	e.docs++
	c, err := e.svc.RegisterCustomer(context.Background(), operator, CustomerInput{
		Kind:           model.CustomerNatural,
		DocumentNumber: fmt.Sprintf("%08d", 10000000+e.docs),
		GivenNames:     "ANA",
		FirstSurname:   "TORRES",
		SecondSurname:  "QUISPE",
		Address:        "Av. Central 123",
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) account(t *testing.T, typ model.AccountType, currency model.Currency) *model.Account {
	t.Helper()
	c := e.customer(t)
	in := OpenAccountInput{CustomerID: c.ID, Type: typ, Currency: currency}
	if typ == model.AccountTerm {
		in.Principal = d("1000")
		in.TermMonths = 6
		in.MonthlyRate = d("1.00")
	}
	acc, err := e.svc.OpenAccount(context.Background(), operator, in)
	require.NoError(t, err)
	return acc
}

func (e *testEnv) fund(t *testing.T, number, amount string) {
	t.Helper()
	_, err := e.svc.Deposit(context.Background(), operator, DepositInput{
		AccountNumber:     number,
		Amount:            d(amount),
		AuthorizationCode: "AUTH-1",
		FundsOrigin:       "salary",
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	acc, err := e.svc.GetAccount(context.Background(), number)
	require.NoError(t, err)
	return acc.Balance
}

func (e *testEnv) setRate(t *testing.T, buy, sell string) {
	t.Helper()
	_, err := e.svc.SetDailyRate(context.Background(), operator, d(buy), d(sell))
	require.NoError(t, err)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "got %s, want %s", got, want)
}
