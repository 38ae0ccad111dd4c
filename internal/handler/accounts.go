package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/service"
)

type openAccountRequest struct {
	CustomerID     int64           `json:"customer_id"`
	Type           string          `json:"type"`
	Currency       string          `json:"currency"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	Principal      decimal.Decimal `json:"principal"`
	TermMonths     int             `json:"term_months"`
	MonthlyRate    decimal.Decimal `json:"monthly_rate"`
}

// OpenAccount открывает счёт клиенту.
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req openAccountRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	acc, err := h.service.OpenAccount(r.Context(), actor, service.OpenAccountInput{
		CustomerID:     req.CustomerID,
		Type:           model.AccountType(req.Type),
		Currency:       model.Currency(req.Currency),
		OverdraftLimit: req.OverdraftLimit,
		Principal:      req.Principal,
		TermMonths:     req.TermMonths,
		MonthlyRate:    req.MonthlyRate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(acc))
}

type accountDetailsResponse struct {
	accountResponse
	AccruedInterest *decimal.Decimal `json:"accrued_interest,omitempty"`
}

// GetAccount возвращает счёт; для срочного вклада добавляются начисленные на сегодня проценты.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	acc, err := h.service.GetAccount(r.Context(), number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := accountDetailsResponse{accountResponse: newAccountResponse(acc)}
	if acc.Type == model.AccountTerm && acc.Status != model.StatusClosed {
		interest, err := h.service.AccruedInterest(r.Context(), number)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.AccruedInterest = &interest
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseAccount закрывает счёт.
func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, h.service.CloseAccount)
}

// DeactivateAccount деактивирует счёт.
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, h.service.DeactivateAccount)
}

// ReactivateAccount возвращает счёт в работу.
func (h *Handler) ReactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.accountAction(w, r, h.service.ReactivateAccount)
}

func (h *Handler) accountAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, actor string, number string) (*model.Account, error)) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	acc, err := action(r.Context(), actor, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acc))
}

// DueForInactivation возвращает счета, простаивающие с нулевым остатком дольше 90 дней.
func (h *Handler) DueForInactivation(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.AccountsDueForInactivation(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountsResponse(accounts))
}

// GetStatement возвращает движения по счёту в хронологическом порядке.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	movements, err := h.service.Statement(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]movementResponse, 0, len(movements))
	for i := range movements {
		resp = append(resp, newMovementResponse(&movements[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type garnishRequest struct {
	OrderNumber string          `json:"order_number"`
	Authority   string          `json:"authority"`
	Amount      decimal.Decimal `json:"amount"`
	Full        bool            `json:"full"`
	Notes       string          `json:"notes"`
}

// Garnish регистрирует арест средств на счёте.
func (h *Handler) Garnish(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req garnishRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	g, err := h.service.Garnish(r.Context(), actor, service.GarnishmentInput{
		AccountNumber: chi.URLParam(r, "number"),
		OrderNumber:   req.OrderNumber,
		Authority:     req.Authority,
		Amount:        req.Amount,
		Full:          req.Full,
		Notes:         req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newGarnishmentResponse(g))
}

// ListGarnishments возвращает постановления по счёту; ?active=true оставляет только действующие.
func (h *Handler) ListGarnishments(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, model.Validationf("invalid active flag %q", v))
			return
		}
		activeOnly = parsed
	}

	list, err := h.service.Garnishments(r.Context(), chi.URLParam(r, "number"), activeOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]garnishmentResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newGarnishmentResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReleaseGarnishment снимает арест.
func (h *Handler) ReleaseGarnishment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, model.Validationf("invalid garnishment id %q", chi.URLParam(r, "id")))
		return
	}

	g, err := h.service.ReleaseGarnishment(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGarnishmentResponse(g))
}

// CancelTerm досрочно отменяет срочный вклад.
func (h *Handler) CancelTerm(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	res, err := h.service.CancelTerm(r.Context(), actor, chi.URLParam(r, "number"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTermResponse(res))
}

type renewTermRequest struct {
	TermMonths  int             `json:"term_months"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
}

// RenewTerm переоформляет срочный вклад на новый срок.
func (h *Handler) RenewTerm(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req renewTermRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.RenewTerm(r.Context(), actor, service.RenewTermInput{
		AccountNumber: chi.URLParam(r, "number"),
		TermMonths:    req.TermMonths,
		MonthlyRate:   req.MonthlyRate,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTermResponse(res))
}
