package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/shanekizito/Thinkly/internal/billing"
)

const (
	// userMetadataKey ties a provider subscription back to a user.
	userMetadataKey     = "uid"
	ephemeralKeyVersion = "2023-10-16"
)

// Gateway implements billing.Gateway on the Stripe API.
type Gateway struct {
	api           *client.API
	webhookSecret string
}

func NewGateway(secretKey, webhookSecret string) *Gateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Gateway{api: api, webhookSecret: webhookSecret}
}

func (g *Gateway) CreateCustomer(ctx context.Context, uid, email string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(userMetadataKey, uid)
	c, err := g.api.Customers.New(params)
	if err != nil {
		return "", classify(err)
	}
	return c.ID, nil
}

// CreateSubscription opens an incomplete card subscription. When the first
// invoice carries no payment intent one is created for the amount due.
func (g *Gateway) CreateSubscription(ctx context.Context, req billing.SubscriptionRequest) (billing.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer:        stripe.String(req.CustomerID),
		Items:           []*stripe.SubscriptionItemsParams{{Price: stripe.String(req.PriceID)}},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	params.AddMetadata(userMetadataKey, req.UserID)

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return billing.Subscription{}, classify(err)
	}
	out := billing.Subscription{ID: sub.ID, Status: string(sub.Status)}

	inv := sub.LatestInvoice
	if inv != nil && inv.PaymentIntent != nil && inv.PaymentIntent.ClientSecret != "" {
		out.ClientSecret = inv.PaymentIntent.ClientSecret
		return out, nil
	}
	if inv == nil {
		return billing.Subscription{}, fmt.Errorf("subscription %s has no invoice", sub.ID)
	}

	currency := string(inv.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	piParams := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(inv.AmountDue),
		Currency:    stripe.String(currency),
		Customer:    stripe.String(req.CustomerID),
		Description: stripe.String("Manual payment for subscription " + sub.ID),
	}
	piParams.Context = ctx
	pi, err := g.api.PaymentIntents.New(piParams)
	if err != nil {
		return billing.Subscription{}, classify(err)
	}
	out.ClientSecret = pi.ClientSecret
	return out, nil
}

func (g *Gateway) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	params := &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(ephemeralKeyVersion),
	}
	params.Context = ctx
	key, err := g.api.EphemeralKeys.New(params)
	if err != nil {
		return "", classify(err)
	}
	return key.Secret, nil
}

func (g *Gateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (billing.Subscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return billing.Subscription{}, classify(err)
	}
	return billing.Subscription{ID: sub.ID, Status: string(sub.Status)}, nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (billing.WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return billing.WebhookEvent{}, err
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (billing.WebhookEvent, error) {
	out := billing.WebhookEvent{Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
		return billing.WebhookEvent{}, fmt.Errorf("decode subscription: %w", err)
	}
	out.SubscriptionID = sub.ID
	out.Status = string(sub.Status)
	out.UserID = sub.Metadata[userMetadataKey]
	return out, nil
}

// classify tags Stripe failures with a billing.Category for the retry policy.
func classify(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return &billing.Error{Category: billing.Classify(err), Err: err}
	}
	category := billing.CategoryUnknown
	switch {
	case serr.Code == stripe.ErrorCodeResourceMissing:
		category = billing.CategoryProductNotFound
	case serr.HTTPStatusCode == http.StatusTooManyRequests, serr.HTTPStatusCode >= 500:
		category = billing.CategoryConnection
	case serr.Type == stripe.ErrorTypeInvalidRequest:
		category = billing.CategoryInvalid
	case serr.Type == stripe.ErrorTypeCard:
		category = billing.CategoryUserCancelled
	}
	return &billing.Error{Category: category, Err: err}
}
