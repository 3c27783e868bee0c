package billing

import (
	"context"
	"errors"
)

var (
	ErrMissingCustomer     = errors.New("missing customerId")
	ErrMissingUID          = errors.New("missing uid")
	ErrUnknownPlan         = errors.New("unknown plan type")
	ErrNoSubscription      = errors.New("no active subscription found")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMissingUserMetadata = errors.New("missing user id in subscription metadata")
)

// Webhook event types the service reacts to.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Subscription is the slice of a provider subscription the backend needs.
type Subscription struct {
	ID     string
	Status string
	// ClientSecret confirms the first payment on the device.
	ClientSecret string
}

type SubscriptionRequest struct {
	CustomerID string
	PriceID    string
	UserID     string
}

// WebhookEvent is a verified provider notification about a subscription.
type WebhookEvent struct {
	Type           string
	SubscriptionID string
	Status         string
	UserID         string
}

// Gateway is the payment provider. Errors that should be retried are
// returned as *Error with a retryable Category.
type Gateway interface {
	CreateCustomer(ctx context.Context, uid, email string) (string, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (Subscription, error)
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
