package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType описывает вид счёта.
type AccountType string

const (
	AccountSavings  AccountType = "SAVINGS"
	AccountChecking AccountType = "CHECKING"
	AccountTerm     AccountType = "TERM"
)

// Code возвращает трёхзначный код вида счёта для префикса номера.
func (t AccountType) Code() (string, error) {
	switch t {
	case AccountSavings:
		return "001", nil
	case AccountChecking:
		return "002", nil
	case AccountTerm:
		return "003", nil
	default:
		return "", Validationf("unknown account type %q", t)
	}
}

// Currency описывает валюту счёта.
type Currency string

const (
	CurrencyLocal   Currency = "LOCAL"
	CurrencyForeign Currency = "FOREIGN"
)

// Code возвращает однозначный код валюты для префикса номера.
func (c Currency) Code() (string, error) {
	switch c {
	case CurrencyLocal:
		return "1", nil
	case CurrencyForeign:
		return "2", nil
	default:
		return "", Validationf("unknown currency %q", c)
	}
}

// AccountStatus описывает состояние счёта.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusInactive  AccountStatus = "INACTIVE"
	StatusClosed    AccountStatus = "CLOSED"
	StatusGarnished AccountStatus = "GARNISHED"
)

const (
	accountSequenceDigits = 10
	idleAccountPeriod     = 90 * 24 * time.Hour
)

// Account — банковский счёт клиента.
type Account struct {
	Number     string
	CustomerID int64
	Type       AccountType
	Currency   Currency
	Balance    decimal.Decimal
	Status     AccountStatus
	Active     bool

	GarnishedAmount decimal.Decimal
	FullGarnish     bool

	// Только для CHECKING.
	OverdraftLimit decimal.Decimal

	// Только для TERM.
	Principal    decimal.Decimal
	TermMonths   int
	MonthlyRate  decimal.Decimal
	MaturityDate *time.Time
	RenewedFrom  string

	OpenedBy       string
	OpenedAt       time.Time
	LastMovementAt time.Time
	ClosedAt       *time.Time
}

// AccountPrefix возвращает префикс номера счёта: код вида и код валюты.
func AccountPrefix(t AccountType, c Currency) (string, error) {
	typeCode, err := t.Code()
	if err != nil {
		return "", err
	}
	currencyCode, err := c.Code()
	if err != nil {
		return "", err
	}
	return typeCode + currencyCode, nil
}

// FormatAccountNumber собирает номер счёта из префикса и порядкового номера.
func FormatAccountNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, accountSequenceDigits, seq)
}

// IsOperable сообщает, можно ли проводить операции по счёту.
func (a *Account) IsOperable() bool {
	return a.Active && a.Status != StatusClosed
}

// AvailableBalance возвращает остаток за вычетом арестованной суммы, но не меньше нуля.
func (a *Account) AvailableBalance() decimal.Decimal {
	if a.FullGarnish {
		return decimal.Zero
	}
	available := a.Balance.Sub(a.GarnishedAmount)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// CanWithdraw сообщает, допускает ли счёт списание указанной суммы.
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	if a.FullGarnish {
		return false
	}
	switch a.Type {
	case AccountSavings:
		return amount.LessThanOrEqual(a.AvailableBalance())
	case AccountChecking:
		return amount.LessThanOrEqual(a.Balance.Sub(a.GarnishedAmount).Add(a.OverdraftLimit))
	case AccountTerm:
		return false
	default:
		return false
	}
}

// CheckWithdrawal возвращает причину, по которой списание невозможно, либо nil.
func (a *Account) CheckWithdrawal(amount decimal.Decimal) error {
	switch {
	case a.Type == AccountTerm:
		return ErrTermWithdrawal
	case !a.IsOperable():
		return ErrAccountNotOperable
	case a.FullGarnish:
		return ErrAccountGarnished
	case !a.CanWithdraw(amount):
		return ErrInsufficientFunds
	}
	return nil
}

// CanClose сообщает, может ли счёт быть закрыт.
func (a *Account) CanClose() bool {
	return a.Balance.IsZero() && a.GarnishedAmount.IsZero()
}

// AccruedInterest возвращает простые проценты по срочному вкладу на дату now.
// Месяц считается равным 30 дням, результат округляется до сотых банковским округлением.
func (a *Account) AccruedInterest(now time.Time, loc *time.Location) decimal.Decimal {
	if a.Type != AccountTerm {
		return decimal.Zero
	}
	days := DaysBetween(a.OpenedAt, now, loc)
	if days <= 0 {
		return decimal.Zero
	}
	return a.Principal.
		Mul(a.MonthlyRate).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(3000)).
		RoundBank(2)
}

// DueForInactivation сообщает, что счёт с нулевым остатком простаивает больше 90 дней.
func (a *Account) DueForInactivation(now time.Time) bool {
	if a.Type == AccountTerm || !a.IsOperable() {
		return false
	}
	if !a.Balance.IsZero() {
		return false
	}
	return a.LastMovementAt.Before(now.Add(-idleAccountPeriod))
}

// DateOf возвращает календарную дату момента t в зоне loc как полночь UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween возвращает число календарных дней между датами from и to в зоне loc.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	return int(DateOf(to, loc).Sub(DateOf(from, loc)).Hours() / 24)
}

// AddMonths прибавляет к дате календарные месяцы, прижимая день к концу месяца.
func AddMonths(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, date.Location())
}
