package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/service"
)

type depositRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	AuthorizationCode string          `json:"authorization_code"`
	FundsOrigin       string          `json:"funds_origin"`
	Description       string          `json:"description"`
}

// Deposit вносит средства на счёт.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	m, err := h.service.Deposit(r.Context(), actor, service.DepositInput{
		AccountNumber:     chi.URLParam(r, "number"),
		Amount:            req.Amount,
		AuthorizationCode: req.AuthorizationCode,
		FundsOrigin:       req.FundsOrigin,
		Description:       req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMovementResponse(m))
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Withdraw снимает средства со счёта.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	m, err := h.service.Withdraw(r.Context(), actor, service.WithdrawalInput{
		AccountNumber: chi.URLParam(r, "number"),
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMovementResponse(m))
}

type transferRequest struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type transferResponse struct {
	Out movementResponse `json:"out"`
	In  movementResponse `json:"in"`
}

// Transfer переводит средства между счетами.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.Transfer(r.Context(), actor, service.TransferInput{
		From:        req.From,
		To:          req.To,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{
		Out: newMovementResponse(res.Out),
		In:  newMovementResponse(res.In),
	})
}

type rateRequest struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// SetTodayRate регистрирует курс на текущий день.
func (h *Handler) SetTodayRate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req rateRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	rate, err := h.service.SetDailyRate(r.Context(), actor, req.Buy, req.Sell)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRateResponse(rate))
}

// GetTodayRate возвращает курс текущего дня или 204, если он не зарегистрирован.
func (h *Handler) GetTodayRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.service.CurrentRate(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rate == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newRateResponse(rate))
}

func (h *Handler) parseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, value, h.loc)
	if err != nil {
		return time.Time{}, model.Validationf("date must be formatted as %s", dateLayout)
	}
	return d, nil
}

// GetRate возвращает курс на указанную дату.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	day, err := h.parseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rate, err := h.service.RateFor(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRateResponse(rate))
}

type conversionResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
}

// Convert пересчитывает сумму между валютами по курсу текущего дня.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || !amount.IsPositive() {
		h.writeError(w, r, model.ErrNonPositiveAmount)
		return
	}
	from := model.Currency(q.Get("from"))
	to := model.Currency(q.Get("to"))
	for _, c := range []model.Currency{from, to} {
		if _, err := c.Code(); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	converted, rate, err := h.service.Convert(r.Context(), amount, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{
		Amount:    amount,
		From:      string(from),
		To:        string(to),
		Converted: converted,
		Rate:      rate,
	})
}

// DailySummary возвращает сводку операций за день ?date=ГГГГ-ММ-ДД, по умолчанию за сегодня.
func (h *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.loc)
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := h.parseDate(v)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		day = parsed
	}

	summary, err := h.service.DailySummary(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(summary))
}
