package checkout

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/prosblk/paychangu-service/internal/domain"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	"github.com/prosblk/paychangu-service/internal/handlers/templates"
	"github.com/prosblk/paychangu-service/internal/services/payment"
	"github.com/prosblk/paychangu-service/pkg/observability"
)

// Handler serves the payment form and starts checkouts. A successful
// initiation answers 303 See Other so the browser follows the redirect to
// the gateway's hosted page with a GET.
type Handler struct {
	initiation *payment.InitiationService
	logger     ports.Logger
}

// NewHandler creates a new checkout handler
func NewHandler(initiation *payment.InitiationService, logger ports.Logger) *Handler {
	return &Handler{
		initiation: initiation,
		logger:     logger,
	}
}

type payPage struct {
	Amount    string
	Currency  string
	Email     string
	FirstName string
	LastName  string
	Error     string
}

// HandleForm serves GET /, the payment form
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.renderForm(w, payPage{Currency: "MWK"})
}

// HandlePay processes POST /pay and redirects to the hosted checkout
func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	page := payPage{
		Amount:    r.PostFormValue("amount"),
		Currency:  r.PostFormValue("currency"),
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
	}

	amount, err := decimal.NewFromString(page.Amount)
	if err != nil {
		observability.RecordInitiation("validation_error")
		page.Error = "Enter a valid amount."
		h.renderForm(w, page)
		return
	}

	resp, err := h.initiation.Initiate(r.Context(), &payment.InitiateRequest{
		Amount:    amount,
		Currency:  page.Currency,
		Email:     page.Email,
		FirstName: page.FirstName,
		LastName:  page.LastName,
		Title:     "Checkout",
	})
	if err != nil {
		if domain.IsValidationError(err) {
			observability.RecordInitiation("validation_error")
			page.Error = "Please check the payment details and try again."
		} else {
			observability.RecordInitiation("gateway_error")
			page.Error = "The payment service is unavailable right now. Please try again shortly."
		}
		h.logger.Warn("checkout initiation rejected", ports.Err(err))
		h.renderForm(w, page)
		return
	}

	observability.RecordInitiation("redirected")
	http.Redirect(w, r, resp.CheckoutURL, http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, page payPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Pages.ExecuteTemplate(w, "pay.html", page); err != nil {
		h.logger.Error("failed to render payment form", ports.Err(err))
	}
}
