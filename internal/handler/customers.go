package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/bankcore/internal/model"
	"github.com/mmeshcher/bankcore/internal/service"
)

type customerRequest struct {
	Kind                string `json:"kind"`
	DocumentNumber      string `json:"document_number"`
	GivenNames          string `json:"given_names"`
	FirstSurname        string `json:"first_surname"`
	SecondSurname       string `json:"second_surname"`
	BirthDate           string `json:"birth_date"`
	LegalName           string `json:"legal_name"`
	TradeName           string `json:"trade_name"`
	LegalRepresentative string `json:"legal_representative"`
	Address             string `json:"address"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
}

func (req customerRequest) input() (service.CustomerInput, error) {
	in := service.CustomerInput{
		Kind:                model.CustomerKind(req.Kind),
		DocumentNumber:      req.DocumentNumber,
		GivenNames:          req.GivenNames,
		FirstSurname:        req.FirstSurname,
		SecondSurname:       req.SecondSurname,
		LegalName:           req.LegalName,
		TradeName:           req.TradeName,
		LegalRepresentative: req.LegalRepresentative,
		Address:             req.Address,
		Phone:               req.Phone,
		Email:               req.Email,
	}
	if req.BirthDate != "" {
		d, err := time.Parse(dateLayout, req.BirthDate)
		if err != nil {
			return in, model.Validationf("birth date must be formatted as %s", dateLayout)
		}
		in.BirthDate = &d
	}
	return in, nil
}

func customerID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Validationf("invalid customer id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// RegisterCustomer регистрирует нового клиента.
func (h *Handler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.service.RegisterCustomer(r.Context(), actor, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerResponse(c))
}

// GetCustomer возвращает клиента по идентификатору.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}

// FindCustomer ищет клиента по виду и номеру документа.
func (h *Handler) FindCustomer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	docType := model.DocumentType(q.Get("document_type"))
	number := q.Get("document_number")
	if docType == "" || number == "" {
		h.writeError(w, r, model.Validationf("document_type and document_number are required"))
		return
	}

	c, err := h.service.GetCustomerByDocument(r.Context(), docType, number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}

// GetCustomerAccounts возвращает счета клиента.
func (h *Handler) GetCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	accounts, err := h.service.CustomerAccounts(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountsResponse(accounts))
}

type contactRequest struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// UpdateCustomerContact изменяет контактные данные клиента.
func (h *Handler) UpdateCustomerContact(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req contactRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.service.UpdateCustomerContact(r.Context(), actor, id, service.ContactUpdate{
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}

// DeactivateCustomer деактивирует клиента.
func (h *Handler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.customerAction(w, r, h.service.DeactivateCustomer)
}

// ReactivateCustomer возвращает клиента в активное состояние.
func (h *Handler) ReactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.customerAction(w, r, h.service.ReactivateCustomer)
}

func (h *Handler) customerAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, actor string, id int64) (*model.Customer, error)) {
	actor, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := customerID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := action(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(c))
}
