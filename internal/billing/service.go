package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
)

const (
	PremiumCoursesLimit = 10
	FreeCoursesLimit    = 1
)

// PaymentSheet carries what the device needs to present the payment UI.
type PaymentSheet struct {
	PaymentIntent  string `json:"paymentIntent"`
	EphemeralKey   string `json:"ephemeralKey"`
	Customer       string `json:"customer"`
	SubscriptionID string `json:"subscriptionId"`
}

// Service keeps the user's subscription fields in step with the payment provider.
type Service struct {
	users   app.UserRepository
	gateway Gateway
	prices  map[string]string
	retry   RetryPolicy
	clock   app.Clock
	log     *logrus.Entry
}

// NewService maps plan types (e.g. "usd", "dkk") to provider price ids through prices.
func NewService(users app.UserRepository, gateway Gateway, prices map[string]string, retry RetryPolicy, clock app.Clock) *Service {
	return &Service{
		users:   users,
		gateway: gateway,
		prices:  prices,
		retry:   retry,
		clock:   clock,
		log:     logrus.WithField("component", "billing"),
	}
}

func (s *Service) CreateCustomer(ctx context.Context, uid, email string) (string, error) {
	if uid == "" {
		return "", ErrMissingUID
	}
	if email == "" {
		email = uid + "@stripe.com"
	}
	var customerID string
	err := s.retry.Do(ctx, "create-customer", func(ctx context.Context) error {
		id, err := s.gateway.CreateCustomer(ctx, uid, email)
		customerID = id
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if _, err := s.users.Update(ctx, uid, func(u *domain.User) error {
		u.CustomerID = customerID
		return nil
	}); err != nil {
		// the customer exists at the provider; the next call will create another one
		s.log.WithError(err).WithField("uid", uid).Error("saving customer id failed")
		return "", err
	}
	return customerID, nil
}

// PaymentSheet opens an incomplete subscription for plan and returns the secrets
// the device confirms it with.
func (s *Service) PaymentSheet(ctx context.Context, customerID, plan string) (PaymentSheet, error) {
	if customerID == "" {
		return PaymentSheet{}, ErrMissingCustomer
	}
	user, err := s.users.FindByCustomerID(ctx, customerID)
	if err != nil {
		return PaymentSheet{}, err
	}
	price, ok := s.prices[strings.ToLower(plan)]
	if !ok || price == "" {
		return PaymentSheet{}, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	var sub Subscription
	err = s.retry.Do(ctx, "create-subscription", func(ctx context.Context) error {
		var err error
		sub, err = s.gateway.CreateSubscription(ctx, SubscriptionRequest{
			CustomerID: customerID,
			PriceID:    price,
			UserID:     user.ID,
		})
		return err
	})
	if err != nil {
		return PaymentSheet{}, fmt.Errorf("create subscription: %w", err)
	}

	var key string
	err = s.retry.Do(ctx, "ephemeral-key", func(ctx context.Context) error {
		var err error
		key, err = s.gateway.CreateEphemeralKey(ctx, customerID)
		return err
	})
	if err != nil {
		return PaymentSheet{}, fmt.Errorf("create ephemeral key: %w", err)
	}

	return PaymentSheet{
		PaymentIntent:  sub.ClientSecret,
		EphemeralKey:   key,
		Customer:       customerID,
		SubscriptionID: sub.ID,
	}, nil
}

// CompletePayment marks the subscription active once the device confirmed payment.
func (s *Service) CompletePayment(ctx context.Context, customerID, subscriptionID string) error {
	if customerID == "" {
		return ErrMissingCustomer
	}
	user, err := s.users.FindByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	now := s.clock()
	_, err = s.users.Update(ctx, user.ID, func(u *domain.User) error {
		u.SubscriptionStatus = domain.SubscriptionActive
		u.SubscriptionID = subscriptionID
		u.LastSubscriptionTime = &now
		return nil
	})
	return err
}

// Cancel stops renewal at the end of the current period and stores the provider status.
func (s *Service) Cancel(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", ErrMissingCustomer
	}
	user, err := s.users.FindByCustomerID(ctx, customerID)
	if err != nil {
		return "", err
	}
	if user.SubscriptionID == "" {
		return "", ErrNoSubscription
	}

	var sub Subscription
	err = s.retry.Do(ctx, "cancel-subscription", func(ctx context.Context) error {
		var err error
		sub, err = s.gateway.CancelAtPeriodEnd(ctx, user.SubscriptionID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("cancel subscription: %w", err)
	}
	if _, err := s.users.Update(ctx, user.ID, func(u *domain.User) error {
		u.SubscriptionStatus = domain.SubscriptionStatus(sub.Status)
		return nil
	}); err != nil {
		return "", err
	}
	return sub.Status, nil
}

// HandleWebhook verifies and applies a provider notification.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if ev.UserID == "" {
		return ErrMissingUserMetadata
	}
	log := s.log.WithField("uid", ev.UserID).WithField("event", ev.Type)

	var apply func(u *domain.User) error
	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		apply = func(u *domain.User) error {
			u.SubscriptionStatus = domain.SubscriptionStatus(ev.Status)
			u.SubscriptionID = ev.SubscriptionID
			u.CoursesLimit = PremiumCoursesLimit
			return nil
		}
	case EventSubscriptionDeleted:
		apply = func(u *domain.User) error {
			u.SubscriptionStatus = domain.SubscriptionInactive
			u.SubscriptionID = ""
			u.CoursesLimit = FreeCoursesLimit
			return nil
		}
	default:
		log.Debug("ignoring webhook event")
		return nil
	}

	if _, err := s.users.Update(ctx, ev.UserID, apply); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			log.Warn("webhook for unknown user")
		}
		return err
	}
	log.WithField("status", ev.Status).Info("subscription updated")
	return nil
}
