package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/bankcore/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware бэк-офиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/customers", func(r chi.Router) {
				r.Post("/", h.RegisterCustomer)
				r.Get("/", h.FindCustomer)
				r.Get("/{id}", h.GetCustomer)
				r.Get("/{id}/accounts", h.GetCustomerAccounts)
				r.Put("/{id}/contact", h.UpdateCustomerContact)
				r.Post("/{id}/deactivate", h.DeactivateCustomer)
				r.Post("/{id}/reactivate", h.ReactivateCustomer)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", h.OpenAccount)
				r.Get("/due-for-inactivation", h.DueForInactivation)

				r.Route("/{number}", func(r chi.Router) {
					r.Get("/", h.GetAccount)
					r.Post("/close", h.CloseAccount)
					r.Post("/deactivate", h.DeactivateAccount)
					r.Post("/reactivate", h.ReactivateAccount)
					r.Get("/statement", h.GetStatement)

					r.Post("/deposits", h.Deposit)
					r.Post("/withdrawals", h.Withdraw)

					r.Post("/garnishments", h.Garnish)
					r.Get("/garnishments", h.ListGarnishments)

					r.Post("/term/cancel", h.CancelTerm)
					r.Post("/term/renew", h.RenewTerm)
				})
			})

			r.Post("/transfers", h.Transfer)
			r.Post("/garnishments/{id}/release", h.ReleaseGarnishment)

			r.Route("/rates", func(r chi.Router) {
				r.Put("/today", h.SetTodayRate)
				r.Get("/today", h.GetTodayRate)
				r.Get("/convert", h.Convert)
				r.Get("/{date}", h.GetRate)
			})

			r.Get("/reports/daily", h.DailySummary)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
