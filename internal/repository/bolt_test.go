package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/bankcore/internal/model"
)

func newTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltNextSequence(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	var got []int64
	for i := 0; i < 3; i++ {
		err := s.WithTx(ctx, func(tx Tx) error {
			v, err := tx.NextSequence(ctx, SequenceAccountPrefix+"0011")
			got = append(got, v)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)

	err := s.WithTx(ctx, func(tx Tx) error {
		v, err := tx.NextSequence(ctx, SequenceAccountPrefix+"0021")
		assert.Equal(t, int64(1), v)
		return err
	})
	require.NoError(t, err)
}

func TestBoltRollbackOnError(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.NextSequence(ctx, "x"); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, &model.Account{Number: "00110000000001"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.WithReadTx(ctx, func(tx Tx) error {
		_, err := tx.GetAccount(ctx, "00110000000001")
		return err
	})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	err = s.WithTx(ctx, func(tx Tx) error {
		v, err := tx.NextSequence(ctx, "x")
		assert.Equal(t, int64(1), v)
		return err
	})
	require.NoError(t, err)
}

func TestBoltCustomers(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	c := &model.Customer{
		Code:           "CLI2026000001",
		Kind:           model.CustomerNatural,
		DocumentType:   model.DocumentNationalID,
		DocumentNumber: "45678912",
		GivenNames:     "ANA",
		Active:         true,
	}

	err := s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.CreateCustomer(ctx, c)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)

	dup := *c
	dup.ID = 0
	err = s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.CreateCustomer(ctx, &dup)
		return err
	})
	assert.ErrorIs(t, err, model.ErrDuplicateDocument)

	err = s.WithReadTx(ctx, func(tx Tx) error {
		got, err := tx.GetCustomerByDocument(ctx, model.DocumentNationalID, "45678912")
		if err != nil {
			return err
		}
		assert.Equal(t, "ANA", got.GivenNames)

		_, err = tx.GetCustomer(ctx, 42)
		assert.ErrorIs(t, err, model.ErrCustomerNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltAccountsAndMovements(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	err := s.WithTx(ctx, func(tx Tx) error {
		for _, n := range []string{"00110000000001", "00110000000002"} {
			if err := tx.CreateAccount(ctx, &model.Account{Number: n, CustomerID: 7, Balance: decimal.Zero}); err != nil {
				return err
			}
		}
		return tx.CreateAccount(ctx, &model.Account{Number: "00110000000001"})
	})
	require.ErrorIs(t, err, model.ErrDuplicateAccountNumber)

	err = s.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreateAccount(ctx, &model.Account{Number: "00110000000001", CustomerID: 7}); err != nil {
			return err
		}
		if err := tx.CreateAccount(ctx, &model.Account{Number: "00110000000002", CustomerID: 8}); err != nil {
			return err
		}

		txID := uuid.New()
		// Записываются не по порядку времени, чтобы проверить сортировку.
		moves := []model.Movement{
			{TransactionID: txID, AccountNumber: "00110000000001", Kind: model.MovementDeposit, Amount: decimal.NewFromInt(5), CreatedAt: base.Add(2 * time.Hour)},
			{TransactionID: txID, AccountNumber: "00110000000001", Kind: model.MovementOpen, CreatedAt: base},
			{TransactionID: txID, AccountNumber: "00110000000002", Kind: model.MovementOpen, CreatedAt: base.Add(time.Hour)},
		}
		for i := range moves {
			if _, err := tx.AppendMovement(ctx, &moves[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithReadTx(ctx, func(tx Tx) error {
		ms, err := tx.ListMovements(ctx, "00110000000001")
		if err != nil {
			return err
		}
		require.Len(t, ms, 2)
		assert.Equal(t, model.MovementOpen, ms[0].Kind)
		assert.Equal(t, model.MovementDeposit, ms[1].Kind)
		assert.True(t, decimal.NewFromInt(5).Equal(ms[1].Amount))

		between, err := tx.ListMovementsBetween(ctx, base.Add(30*time.Minute), base.Add(3*time.Hour))
		if err != nil {
			return err
		}
		require.Len(t, between, 2)
		assert.Equal(t, "00110000000002", between[0].AccountNumber)

		byCustomer, err := tx.ListAccountsByCustomer(ctx, 7)
		if err != nil {
			return err
		}
		require.Len(t, byCustomer, 1)
		assert.Equal(t, "00110000000001", byCustomer[0].Number)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltGarnishments(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Tx) error {
		for _, order := range []string{"ORD-1", "ORD-2"} {
			g := &model.Garnishment{AccountNumber: "00110000000001", OrderNumber: order, Amount: decimal.NewFromInt(10), Active: true}
			if _, err := tx.CreateGarnishment(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.CreateGarnishment(ctx, &model.Garnishment{AccountNumber: "00220000000001", OrderNumber: "ORD-1"})
		return err
	})
	require.ErrorIs(t, err, model.ErrDuplicateOrder)

	err = s.WithTx(ctx, func(tx Tx) error {
		g, err := tx.LockGarnishment(ctx, 1)
		if err != nil {
			return err
		}
		g.Active = false
		return tx.UpdateGarnishment(ctx, g)
	})
	require.NoError(t, err)

	err = s.WithReadTx(ctx, func(tx Tx) error {
		active, err := tx.ListGarnishments(ctx, "00110000000001", true)
		if err != nil {
			return err
		}
		all, err := tx.ListGarnishments(ctx, "00110000000001", false)
		if err != nil {
			return err
		}
		assert.Len(t, active, 1)
		assert.Equal(t, "ORD-2", active[0].OrderNumber)
		assert.Len(t, all, 2)

		_, err = tx.LockGarnishment(ctx, 99)
		assert.ErrorIs(t, err, model.ErrGarnishmentNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltExchangeRateUpsert(t *testing.T) {
	s := newTestBoltStore(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	for _, sell := range []string{"3.750", "3.800"} {
		err := s.WithTx(ctx, func(tx Tx) error {
			return tx.SaveExchangeRate(ctx, &model.ExchangeRate{
				Date: day,
				Buy:  decimal.RequireFromString("3.700"),
				Sell: decimal.RequireFromString(sell),
			})
		})
		require.NoError(t, err)
	}

	err := s.WithReadTx(ctx, func(tx Tx) error {
		r, err := tx.GetExchangeRate(ctx, day)
		if err != nil {
			return err
		}
		assert.True(t, decimal.RequireFromString("3.800").Equal(r.Sell))

		_, err = tx.GetExchangeRate(ctx, day.AddDate(0, 0, -1))
		assert.ErrorIs(t, err, model.ErrRateNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestBoltCanceledContext(t *testing.T) {
	s := newTestBoltStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WithTx(ctx, func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
