package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/bankcore/internal/model"
)

func TestFullGarnishment(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, model.AccountSavings, model.CurrencyLocal)
	env.fund(t, acc.Number, "500")

	g, err := env.svc.Garnish(ctx, operator, GarnishmentInput{
		AccountNumber: acc.Number,
		OrderNumber:   "EXP-2026-001",
		Authority:     "First Civil Court",
		Full:          true,
	})
	require.NoError(t, err)
	assert.True(t, g.Full)
	assert.True(t, g.Active)
	requireDecimal(t, "500", g.Amount)

	available, err := env.svc.AvailableBalance(ctx, acc.Number)
	require.NoError(t, err)
	requireDecimal(t, "0", available)

	got, err := env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.Equal(t, model.StatusGarnished, got.Status)
	assert.True(t, got.FullGarnish)
	requireDecimal(t, "500", got.Balance)

	_, err = env.svc.Withdraw(ctx, operator, WithdrawalInput{AccountNumber: acc.Number, Amount: d("1")})
	assert.ErrorIs(t, err, model.ErrAccountGarnished)

	// Зачисления на арестованный счёт допускаются.
	env.fund(t, acc.Number, "10")

	movements, err := env.svc.Statement(ctx, acc.Number)
	require.NoError(t, err)
	var garnish *model.Movement
	for i := range movements {
		if movements[i].Kind == model.MovementGarnish {
			garnish = &movements[i]
		}
	}
	require.NotNil(t, garnish)
	requireDecimal(t, "500", garnish.Amount)
	assert.True(t, garnish.BalanceBefore.Equal(garnish.BalanceAfter))

	require.NoError(t, env.svc.VerifyLedger(ctx, acc.Number))
}

func TestPartialGarnishment(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, model.AccountSavings, model.CurrencyLocal)
	env.fund(t, acc.Number, "500")

	_, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("200")})
	require.NoError(t, err)

	available, err := env.svc.AvailableBalance(ctx, acc.Number)
	require.NoError(t, err)
	requireDecimal(t, "300", available)

	_, err = env.svc.Withdraw(ctx, operator, WithdrawalInput{AccountNumber: acc.Number, Amount: d("301")})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	_, err = env.svc.Withdraw(ctx, operator, WithdrawalInput{AccountNumber: acc.Number, Amount: d("300")})
	require.NoError(t, err)
	requireDecimal(t, "200", env.balance(t, acc.Number))
}

func TestGarnishmentRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, model.AccountSavings, model.CurrencyLocal)
	env.fund(t, acc.Number, "100")

	_, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("100.01")})
	assert.ErrorIs(t, err, model.ErrGarnishmentExceedsBalance)

	_, err = env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("0")})
	assert.ErrorIs(t, err, model.ErrNonPositiveAmount)

	_, err = env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, Authority: "Court", Amount: d("1")})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("10")})
	require.NoError(t, err)

	_, err = env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("10")})
	assert.ErrorIs(t, err, model.ErrDuplicateOrder)

	got, err := env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	requireDecimal(t, "10", got.GarnishedAmount)
}

func TestReleaseGarnishment(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, model.AccountSavings, model.CurrencyLocal)
	env.fund(t, acc.Number, "500")

	partial, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-1", Authority: "Court", Amount: d("200")})
	require.NoError(t, err)
	full, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-2", Authority: "Court", Full: true})
	require.NoError(t, err)
	requireDecimal(t, "300", full.Amount)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, partial.ID)
	require.NoError(t, err)

	got, err := env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.True(t, got.FullGarnish, "another full garnishment is still active")
	assert.Equal(t, model.StatusGarnished, got.Status)
	requireDecimal(t, "300", got.GarnishedAmount)

	released, err := env.svc.ReleaseGarnishment(ctx, "supervisor", full.ID)
	require.NoError(t, err)
	assert.False(t, released.Active)
	assert.Equal(t, "supervisor", released.ReleasedBy)
	require.NotNil(t, released.ReleasedAt)

	got, err = env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.False(t, got.FullGarnish)
	assert.Equal(t, model.StatusActive, got.Status)
	requireDecimal(t, "0", got.GarnishedAmount)
	requireDecimal(t, "500", got.AvailableBalance())

	_, err = env.svc.ReleaseGarnishment(ctx, operator, full.ID)
	assert.ErrorIs(t, err, model.ErrGarnishmentAlreadyReleased)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, 999)
	assert.ErrorIs(t, err, model.ErrGarnishmentNotFound)

	active, err := env.svc.Garnishments(ctx, acc.Number, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := env.svc.Garnishments(ctx, acc.Number, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, env.svc.VerifyLedger(ctx, acc.Number))
}

func TestReleaseAfterBalanceDropNeverGoesNegative(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	acc := env.account(t, model.AccountSavings, model.CurrencyLocal)
	env.fund(t, acc.Number, "100")

	first, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "A", Authority: "Court", Amount: d("60")})
	require.NoError(t, err)
	second, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "B", Authority: "Court", Amount: d("30")})
	require.NoError(t, err)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, first.ID)
	require.NoError(t, err)
	got, err := env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	requireDecimal(t, "30", got.GarnishedAmount)
	assert.Equal(t, model.StatusGarnished, got.Status)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, second.ID)
	require.NoError(t, err)
	got, err = env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.False(t, got.GarnishedAmount.IsNegative())
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestFullGarnishmentOverPartialOnOverdrawnChecking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	c := env.customer(t)
	acc, err := env.svc.OpenAccount(ctx, operator, OpenAccountInput{
		CustomerID:     c.ID,
		Type:           model.AccountChecking,
		Currency:       model.CurrencyLocal,
		OverdraftLimit: d("1000"),
	})
	require.NoError(t, err)
	env.fund(t, acc.Number, "500")

	partial, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-P1", Authority: "Court", Amount: d("200")})
	require.NoError(t, err)

	_, err = env.svc.Withdraw(ctx, operator, WithdrawalInput{AccountNumber: acc.Number, Amount: d("1300")})
	require.NoError(t, err)
	requireDecimal(t, "-800", env.balance(t, acc.Number))

	full, err := env.svc.Garnish(ctx, operator, GarnishmentInput{AccountNumber: acc.Number, OrderNumber: "EXP-F1", Authority: "Court", Full: true})
	require.NoError(t, err)
	requireDecimal(t, "0", full.Amount)

	got, err := env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.True(t, got.FullGarnish)
	requireDecimal(t, "200", got.GarnishedAmount)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, full.ID)
	require.NoError(t, err)

	got, err = env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	assert.False(t, got.FullGarnish)
	requireDecimal(t, "200", got.GarnishedAmount)
	assert.Equal(t, model.StatusGarnished, got.Status)

	_, err = env.svc.ReleaseGarnishment(ctx, operator, partial.ID)
	require.NoError(t, err)

	got, err = env.svc.GetAccount(ctx, acc.Number)
	require.NoError(t, err)
	requireDecimal(t, "0", got.GarnishedAmount)
	assert.Equal(t, model.StatusActive, got.Status)
	require.NoError(t, env.svc.VerifyLedger(ctx, acc.Number))
}
