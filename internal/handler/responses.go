package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/service"
)

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

type customerResponse struct {
	ID                  int64  `json:"id"`
	Code                string `json:"code"`
	Kind                string `json:"kind"`
	DocumentType        string `json:"document_type"`
	DocumentNumber      string `json:"document_number"`
	FullName            string `json:"full_name"`
	GivenNames          string `json:"given_names,omitempty"`
	FirstSurname        string `json:"first_surname,omitempty"`
	SecondSurname       string `json:"second_surname,omitempty"`
	BirthDate           string `json:"birth_date,omitempty"`
	LegalName           string `json:"legal_name,omitempty"`
	TradeName           string `json:"trade_name,omitempty"`
	LegalRepresentative string `json:"legal_representative,omitempty"`
	Address             string `json:"address"`
	Phone               string `json:"phone,omitempty"`
	Email               string `json:"email,omitempty"`
	IdentityVerified    bool   `json:"identity_verified"`
	Active              bool   `json:"active"`
	CreatedBy           string `json:"created_by"`
	CreatedAt           string `json:"created_at"`
}

func newCustomerResponse(c *model.Customer) customerResponse {
	return customerResponse{
		ID:                  c.ID,
		Code:                c.Code,
		Kind:                string(c.Kind),
		DocumentType:        string(c.DocumentType),
		DocumentNumber:      c.DocumentNumber,
		FullName:            c.FullName(),
		GivenNames:          c.GivenNames,
		FirstSurname:        c.FirstSurname,
		SecondSurname:       c.SecondSurname,
		BirthDate:           formatDate(c.BirthDate),
		LegalName:           c.LegalName,
		TradeName:           c.TradeName,
		LegalRepresentative: c.LegalRepresentative,
		Address:             c.Address,
		Phone:               c.Phone,
		Email:               c.Email,
		IdentityVerified:    c.IdentityVerified,
		Active:              c.Active,
		CreatedBy:           c.CreatedBy,
		CreatedAt:           formatTime(&c.CreatedAt),
	}
}

type accountResponse struct {
	Number           string           `json:"number"`
	CustomerID       int64            `json:"customer_id"`
	Type             string           `json:"type"`
	Currency         string           `json:"currency"`
	Balance          decimal.Decimal  `json:"balance"`
	AvailableBalance decimal.Decimal  `json:"available_balance"`
	GarnishedAmount  decimal.Decimal  `json:"garnished_amount"`
	FullGarnish      bool             `json:"full_garnish"`
	Status           string           `json:"status"`
	Active           bool             `json:"active"`
	OverdraftLimit   *decimal.Decimal `json:"overdraft_limit,omitempty"`
	Principal        *decimal.Decimal `json:"principal,omitempty"`
	TermMonths       int              `json:"term_months,omitempty"`
	MonthlyRate      *decimal.Decimal `json:"monthly_rate,omitempty"`
	MaturityDate     string           `json:"maturity_date,omitempty"`
	RenewedFrom      string           `json:"renewed_from,omitempty"`
	OpenedAt         string           `json:"opened_at"`
	ClosedAt         string           `json:"closed_at,omitempty"`
}

func newAccountResponse(a *model.Account) accountResponse {
	resp := accountResponse{
		Number:           a.Number,
		CustomerID:       a.CustomerID,
		Type:             string(a.Type),
		Currency:         string(a.Currency),
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance(),
		GarnishedAmount:  a.GarnishedAmount,
		FullGarnish:      a.FullGarnish,
		Status:           string(a.Status),
		Active:           a.Active,
		MaturityDate:     formatDate(a.MaturityDate),
		RenewedFrom:      a.RenewedFrom,
		OpenedAt:         formatTime(&a.OpenedAt),
		ClosedAt:         formatTime(a.ClosedAt),
	}
	switch a.Type {
	case model.AccountChecking:
		resp.OverdraftLimit = &a.OverdraftLimit
	case model.AccountTerm:
		resp.Principal = &a.Principal
		resp.TermMonths = a.TermMonths
		resp.MonthlyRate = &a.MonthlyRate
	}
	return resp
}

func newAccountsResponse(accounts []model.Account) []accountResponse {
	resp := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, newAccountResponse(&accounts[i]))
	}
	return resp
}

type movementResponse struct {
	ID                    int64            `json:"id"`
	TransactionID         string           `json:"transaction_id"`
	AccountNumber         string           `json:"account_number"`
	Kind                  string           `json:"kind"`
	Amount                decimal.Decimal  `json:"amount"`
	BalanceBefore         decimal.Decimal  `json:"balance_before"`
	BalanceAfter          decimal.Decimal  `json:"balance_after"`
	Description           string           `json:"description,omitempty"`
	CounterpartAccount    string           `json:"counterpart_account,omitempty"`
	ExchangeRate          *decimal.Decimal `json:"exchange_rate,omitempty"`
	RequiresAuthorization bool             `json:"requires_authorization,omitempty"`
	AuthorizationCode     string           `json:"authorization_code,omitempty"`
	FundsOrigin           string           `json:"funds_origin,omitempty"`
	CreatedBy             string           `json:"created_by"`
	CreatedAt             string           `json:"created_at"`
}

func newMovementResponse(m *model.Movement) movementResponse {
	resp := movementResponse{
		ID:                    m.ID,
		TransactionID:         m.TransactionID.String(),
		AccountNumber:         m.AccountNumber,
		Kind:                  string(m.Kind),
		Amount:                m.Amount,
		BalanceBefore:         m.BalanceBefore,
		BalanceAfter:          m.BalanceAfter,
		Description:           m.Description,
		CounterpartAccount:    m.CounterpartAccount,
		RequiresAuthorization: m.RequiresAuthorization,
		AuthorizationCode:     m.AuthorizationCode,
		FundsOrigin:           m.FundsOrigin,
		CreatedBy:             m.CreatedBy,
		CreatedAt:             formatTime(&m.CreatedAt),
	}
	if m.ExchangeRate.Valid {
		rate := m.ExchangeRate.Decimal
		resp.ExchangeRate = &rate
	}
	return resp
}

type garnishmentResponse struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	OrderNumber   string          `json:"order_number"`
	Authority     string          `json:"authority"`
	Amount        decimal.Decimal `json:"amount"`
	Full          bool            `json:"full"`
	Active        bool            `json:"active"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     string          `json:"created_at"`
	ReleasedBy    string          `json:"released_by,omitempty"`
	ReleasedAt    string          `json:"released_at,omitempty"`
}

func newGarnishmentResponse(g *model.Garnishment) garnishmentResponse {
	return garnishmentResponse{
		ID:            g.ID,
		AccountNumber: g.AccountNumber,
		OrderNumber:   g.OrderNumber,
		Authority:     g.Authority,
		Amount:        g.Amount,
		Full:          g.Full,
		Active:        g.Active,
		Notes:         g.Notes,
		CreatedBy:     g.CreatedBy,
		CreatedAt:     formatTime(&g.CreatedAt),
		ReleasedBy:    g.ReleasedBy,
		ReleasedAt:    formatTime(g.ReleasedAt),
	}
}

type termResponse struct {
	Account    accountResponse  `json:"account"`
	Principal  decimal.Decimal  `json:"principal"`
	Interest   decimal.Decimal  `json:"interest"`
	Total      decimal.Decimal  `json:"total"`
	NewAccount *accountResponse `json:"new_account,omitempty"`
}

func newTermResponse(s *service.TermSettlement) termResponse {
	resp := termResponse{
		Account:   newAccountResponse(s.Account),
		Principal: s.Principal,
		Interest:  s.Interest,
		Total:     s.Total,
	}
	if s.NewAccount != nil {
		acc := newAccountResponse(s.NewAccount)
		resp.NewAccount = &acc
	}
	return resp
}

type rateResponse struct {
	Date         string          `json:"date"`
	Buy          decimal.Decimal `json:"buy"`
	Sell         decimal.Decimal `json:"sell"`
	RegisteredBy string          `json:"registered_by"`
	RegisteredAt string          `json:"registered_at"`
}

func newRateResponse(r *model.ExchangeRate) rateResponse {
	return rateResponse{
		Date:         formatDate(&r.Date),
		Buy:          r.Buy,
		Sell:         r.Sell,
		RegisteredBy: r.RegisteredBy,
		RegisteredAt: formatTime(&r.RegisteredAt),
	}
}

type summaryResponse struct {
	Date             string                     `json:"date"`
	Rate             *rateResponse              `json:"rate,omitempty"`
	TotalOperations  int                        `json:"total_operations"`
	Transfers        int                        `json:"transfers"`
	ByKind           map[string]int             `json:"by_kind"`
	ByUser           map[string]int             `json:"by_user"`
	Deposits         map[string]decimal.Decimal `json:"deposits"`
	Withdrawals      map[string]decimal.Decimal `json:"withdrawals"`
	DepositsLocal    decimal.Decimal            `json:"deposits_local"`
	WithdrawalsLocal decimal.Decimal            `json:"withdrawals_local"`
}

func newSummaryResponse(s *model.DailySummary) summaryResponse {
	resp := summaryResponse{
		Date:             formatDate(&s.Date),
		TotalOperations:  s.TotalOperations,
		Transfers:        s.Transfers,
		ByKind:           make(map[string]int, len(s.ByKind)),
		ByUser:           s.ByUser,
		Deposits:         make(map[string]decimal.Decimal, len(s.Deposits)),
		Withdrawals:      make(map[string]decimal.Decimal, len(s.Withdrawals)),
		DepositsLocal:    s.DepositsLocal,
		WithdrawalsLocal: s.WithdrawalsLocal,
	}
	if s.Rate != nil {
		rate := newRateResponse(s.Rate)
		resp.Rate = &rate
	}
	for k, v := range s.ByKind {
		resp.ByKind[string(k)] = v
	}
	for c, v := range s.Deposits {
		resp.Deposits[string(c)] = v
	}
	for c, v := range s.Withdrawals {
		resp.Withdrawals[string(c)] = v
	}
	return resp
}
