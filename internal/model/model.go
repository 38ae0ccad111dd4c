// Package model содержит доменные сущности ядра банковского бэк-офиса.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerKind описывает вид клиента: физическое или юридическое лицо.
type CustomerKind string

const (
	CustomerNatural CustomerKind = "NATURAL"
	CustomerEntity  CustomerKind = "ENTITY"
)

// DocumentType описывает вид документа, удостоверяющего клиента.
type DocumentType string

const (
	DocumentNationalID DocumentType = "NATIONAL_ID"
	DocumentTaxID      DocumentType = "TAX_ID"
)

// DocumentFor возвращает вид документа, соответствующий виду клиента.
func (k CustomerKind) DocumentFor() (DocumentType, error) {
	switch k {
	case CustomerNatural:
		return DocumentNationalID, nil
	case CustomerEntity:
		return DocumentTaxID, nil
	default:
		return "", Validationf("unknown customer kind %q", k)
	}
}

// Customer представляет клиента банка.
type Customer struct {
	ID             int64
	Code           string
	Kind           CustomerKind
	DocumentType   DocumentType
	DocumentNumber string

	// Заполняются только для физических лиц.
	GivenNames    string
	FirstSurname  string
	SecondSurname string
	BirthDate     *time.Time

	// Заполняются только для юридических лиц.
	LegalName           string
	TradeName           string
	LegalRepresentative string

	Address string
	Phone   string
	Email   string

	IdentityVerified bool
	Active           bool
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName возвращает отображаемое имя клиента.
func (c *Customer) FullName() string {
	if c.Kind == CustomerNatural {
		return strings.Join([]string{c.GivenNames, c.FirstSurname, c.SecondSurname}, " ")
	}
	return c.LegalName
}

// MovementKind описывает вид записи в журнале движений.
type MovementKind string

const (
	MovementDeposit        MovementKind = "DEPOSIT"
	MovementWithdrawal     MovementKind = "WITHDRAWAL"
	MovementTransferOut    MovementKind = "TRANSFER_OUT"
	MovementTransferIn     MovementKind = "TRANSFER_IN"
	MovementOpen           MovementKind = "OPEN"
	MovementClose          MovementKind = "CLOSE"
	MovementTermCancel     MovementKind = "TERM_CANCEL"
	MovementTermRenew      MovementKind = "TERM_RENEW"
	MovementInterest       MovementKind = "INTEREST"
	MovementGarnish        MovementKind = "GARNISH"
	MovementReleaseGarnish MovementKind = "RELEASE_GARNISH"
)

// Movement — неизменяемая запись журнала движений по счёту.
type Movement struct {
	ID                 int64
	TransactionID      uuid.UUID
	AccountNumber      string
	Kind               MovementKind
	Amount             decimal.Decimal
	BalanceBefore      decimal.Decimal
	BalanceAfter       decimal.Decimal
	Description        string
	CounterpartAccount string
	ExchangeRate       decimal.NullDecimal

	RequiresAuthorization bool
	AuthorizationCode     string
	FundsOrigin           string

	CreatedBy string
	CreatedAt time.Time
}

// Garnishment описывает судебное постановление об аресте средств на счёте.
type Garnishment struct {
	ID            int64
	AccountNumber string
	OrderNumber   string
	Authority     string
	// Amount — сумма, на которую постановление увеличило арестованную сумму счёта.
	Amount     decimal.Decimal
	Full       bool
	Active     bool
	Notes      string
	CreatedBy  string
	CreatedAt  time.Time
	ReleasedBy string
	ReleasedAt *time.Time
}

// DailySummary содержит сводку операций за календарный день.
type DailySummary struct {
	Date            time.Time
	Rate            *ExchangeRate
	TotalOperations int
	Transfers       int
	ByKind          map[MovementKind]int
	ByUser          map[string]int
	Deposits        map[Currency]decimal.Decimal
	Withdrawals     map[Currency]decimal.Decimal
	// Итоги в локальной валюте по курсу продажи дня, без курса — по номиналу.
	DepositsLocal    decimal.Decimal
	WithdrawalsLocal decimal.Decimal
}
