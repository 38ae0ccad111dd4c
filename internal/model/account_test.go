package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountPrefixAndNumber(t *testing.T) {
	tests := []struct {
		name     string
		typ      AccountType
		currency Currency
		want     string
	}{
		{name: "savings local", typ: AccountSavings, currency: CurrencyLocal, want: "0011"},
		{name: "checking foreign", typ: AccountChecking, currency: CurrencyForeign, want: "0022"},
		{name: "term local", typ: AccountTerm, currency: CurrencyLocal, want: "0031"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, err := AccountPrefix(tt.typ, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, prefix)
		})
	}

	assert.Equal(t, "00110000000042", FormatAccountNumber("0011", 42))

	_, err := AccountPrefix("BOGUS", CurrencyLocal)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestAvailableBalance(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    string
	}{
		{name: "no garnishment", account: Account{Balance: dec("500")}, want: "500"},
		{name: "partial garnishment", account: Account{Balance: dec("500"), GarnishedAmount: dec("200")}, want: "300"},
		{name: "full garnishment", account: Account{Balance: dec("500"), GarnishedAmount: dec("500"), FullGarnish: true}, want: "0"},
		{name: "garnished above balance", account: Account{Balance: dec("100"), GarnishedAmount: dec("200")}, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.account.AvailableBalance()
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestCanWithdraw(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		amount  string
		want    bool
	}{
		{name: "savings within available", account: Account{Type: AccountSavings, Balance: dec("100")}, amount: "100", want: true},
		{name: "savings above available", account: Account{Type: AccountSavings, Balance: dec("100")}, amount: "100.01", want: false},
		{name: "checking uses overdraft", account: Account{Type: AccountChecking, Balance: dec("100"), OverdraftLimit: dec("50")}, amount: "150", want: true},
		{name: "checking above overdraft", account: Account{Type: AccountChecking, Balance: dec("100"), OverdraftLimit: dec("50")}, amount: "150.01", want: false},
		{name: "checking already overdrawn", account: Account{Type: AccountChecking, Balance: dec("-30"), OverdraftLimit: dec("50")}, amount: "20.01", want: false},
		{name: "checking partial garnish", account: Account{Type: AccountChecking, Balance: dec("100"), GarnishedAmount: dec("40"), OverdraftLimit: dec("50")}, amount: "110", want: true},
		{name: "term never", account: Account{Type: AccountTerm, Balance: dec("1000")}, amount: "1", want: false},
		{name: "full garnish never", account: Account{Type: AccountChecking, Balance: dec("100"), OverdraftLimit: dec("50"), FullGarnish: true}, amount: "1", want: false},
		{name: "partial garnish reduces", account: Account{Type: AccountSavings, Balance: dec("500"), GarnishedAmount: dec("200")}, amount: "301", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.account.CanWithdraw(dec(tt.amount)))
		})
	}
}

func TestCheckWithdrawalReasons(t *testing.T) {
	term := Account{Type: AccountTerm, Active: true, Status: StatusActive, Balance: dec("10")}
	assert.ErrorIs(t, term.CheckWithdrawal(dec("1")), ErrTermWithdrawal)

	closed := Account{Type: AccountSavings, Active: false, Status: StatusClosed}
	assert.ErrorIs(t, closed.CheckWithdrawal(dec("1")), ErrAccountNotOperable)

	garnished := Account{Type: AccountSavings, Active: true, Status: StatusGarnished, Balance: dec("10"), FullGarnish: true}
	assert.ErrorIs(t, garnished.CheckWithdrawal(dec("1")), ErrAccountGarnished)

	poor := Account{Type: AccountSavings, Active: true, Status: StatusActive, Balance: dec("10")}
	err := poor.CheckWithdrawal(dec("11"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, ErrBusinessRule)
	assert.Equal(t, "withdrawal exceeds available balance", err.Error())

	assert.NoError(t, poor.CheckWithdrawal(dec("10")))
}

func TestAccruedInterest(t *testing.T) {
	opened := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	acc := Account{
		Type:        AccountTerm,
		Principal:   dec("1000"),
		MonthlyRate: dec("1.00"),
		OpenedAt:    opened,
	}

	got := acc.AccruedInterest(opened.AddDate(0, 0, 60), time.UTC)
	assert.True(t, dec("20.00").Equal(got), "got %s", got)

	got = acc.AccruedInterest(opened.AddDate(0, 0, 7), time.UTC)
	assert.True(t, dec("2.33").Equal(got), "got %s", got)

	got = acc.AccruedInterest(opened, time.UTC)
	assert.True(t, got.IsZero())

	savings := Account{Type: AccountSavings, Principal: dec("1000"), MonthlyRate: dec("1"), OpenedAt: opened}
	assert.True(t, savings.AccruedInterest(opened.AddDate(0, 1, 0), time.UTC).IsZero())
}

func TestAccruedInterestBankersRounding(t *testing.T) {
	opened := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	acc := Account{Type: AccountTerm, Principal: dec("75"), MonthlyRate: dec("0.10"), OpenedAt: opened}

	// 75 * 0.10 * 2 / 3000 = 0.005
	got := acc.AccruedInterest(opened.AddDate(0, 0, 2), time.UTC)
	assert.True(t, dec("0.00").Equal(got), "got %s", got)

	// 75 * 0.10 * 6 / 3000 = 0.015
	got = acc.AccruedInterest(opened.AddDate(0, 0, 6), time.UTC)
	assert.True(t, dec("0.02").Equal(got), "got %s", got)

	// 75 * 0.10 * 10 / 3000 = 0.025
	got = acc.AccruedInterest(opened.AddDate(0, 0, 10), time.UTC)
	assert.True(t, dec("0.02").Equal(got), "got %s", got)
}

func TestCanClose(t *testing.T) {
	assert.True(t, (&Account{}).CanClose())
	assert.False(t, (&Account{Balance: dec("0.01")}).CanClose())
	assert.False(t, (&Account{GarnishedAmount: dec("5")}).CanClose())
}

func TestDueForInactivation(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	idle := Account{Type: AccountSavings, Active: true, Status: StatusActive, LastMovementAt: now.AddDate(0, 0, -91)}
	assert.True(t, idle.DueForInactivation(now))

	recent := idle
	recent.LastMovementAt = now.AddDate(0, 0, -10)
	assert.False(t, recent.DueForInactivation(now))

	funded := idle
	funded.Balance = dec("1")
	assert.False(t, funded.DueForInactivation(now))

	term := idle
	term.Type = AccountTerm
	assert.False(t, term.DueForInactivation(now))

	inactive := idle
	inactive.Active = false
	inactive.Status = StatusInactive
	assert.False(t, inactive.DueForInactivation(now))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		date   time.Time
		months int
		want   time.Time
	}{
		{name: "plain", date: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), months: 6, want: time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)},
		{name: "clamps to february end", date: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), months: 1, want: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{name: "leap year", date: time.Date(2027, 11, 30, 0, 0, 0, 0, time.UTC), months: 3, want: time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{name: "crosses year", date: time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC), months: 14, want: time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.date, tt.months))
		})
	}
}

func TestDaysBetweenUsesCalendarDates(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	from := time.Date(2026, 5, 1, 23, 30, 0, 0, zone)
	to := time.Date(2026, 5, 2, 0, 10, 0, 0, zone)
	assert.Equal(t, 1, DaysBetween(from, to, zone))
}

func TestFitsScale(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "10", want: true},
		{value: "10.5", want: true},
		{value: "10.55", want: true},
		{value: "10.500", want: true},
		{value: "10.555", want: false},
		{value: "0.001", want: false},
		{value: "-3.001", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, FitsScale(dec(tt.value), MoneyScale))
		})
	}
}
