package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/domain"
)

const maxWebhookBytes = 65536

// Handler exposes the payment backend endpoints the mobile client calls.
type Handler struct {
	svc *Service
	log *logrus.Entry
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, log: logrus.WithField("component", "billing-http")}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/createCustomer", h.createCustomer).Methods(http.MethodPost)
	r.HandleFunc("/payment-sheet", h.paymentSheet).Methods(http.MethodPost)
	r.HandleFunc("/payment-complete", h.paymentComplete).Methods(http.MethodPost)
	r.HandleFunc("/cancel-subscription", h.cancelSubscription).Methods(http.MethodPost)
	r.HandleFunc("/webhook", h.webhook).Methods(http.MethodPost)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UID   string `json:"uid"`
		Email string `json:"email"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	id, err := h.svc.CreateCustomer(r.Context(), body.UID, body.Email)
	if err != nil {
		h.fail(w, "createCustomer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"customerId": id})
}

func (h *Handler) paymentSheet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID string `json:"customerId"`
		Type       string `json:"type"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	sheet, err := h.svc.PaymentSheet(r.Context(), body.CustomerID, body.Type)
	if err != nil {
		h.fail(w, "payment-sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func (h *Handler) paymentComplete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID     string `json:"customerId"`
		SubscriptionID string `json:"subscriptionId"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.svc.CompletePayment(r.Context(), body.CustomerID, body.SubscriptionID); err != nil {
		h.fail(w, "payment-complete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID string `json:"customerId"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	status, err := h.svc.Cancel(r.Context(), body.CustomerID)
	if err != nil {
		h.fail(w, "cancel-subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": status})
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.fail(w, "webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, ErrMissingCustomer), errors.Is(err, ErrMissingUID),
		errors.Is(err, ErrUnknownPlan), errors.Is(err, ErrNoSubscription),
		errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrMissingUserMetadata):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUserNotFound):
		status, msg = http.StatusNotFound, "User not found for customerId"
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("op", op).Error("billing request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
