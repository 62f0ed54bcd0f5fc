package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// SessionStatusComplete marks a checkout session that has been paid.
const SessionStatusComplete = "complete"

// ProductRef identifies a priced product at the provider.
type ProductRef struct {
	ProductID string
	PriceID   string
}

// Session is the provider's view of a checkout session.
type Session struct {
	ID     string
	Status string
	URL    string
}

// Gateway is the payment provider boundary.
type Gateway interface {
	CreateProduct(ctx context.Context, name string, amountMinor int64) (ProductRef, error)
	CreateCheckoutSession(ctx context.Context, ref ProductRef) (url, sessionID string, err error)
	// GetSession returns nil without error when the provider does not know id.
	GetSession(ctx context.Context, id string) (*Session, error)
}

// StripeGateway talks to Stripe.
type StripeGateway struct {
	api        *client.API
	currency   string
	successURL string
}

// NewStripeGateway builds a gateway using the given secret key.
func NewStripeGateway(apiKey, currency, successURL string) *StripeGateway {
	return &StripeGateway{
		api:        client.New(apiKey, nil),
		currency:   currency,
		successURL: successURL,
	}
}

// CreateProduct registers a product with a default one-off price.
func (g *StripeGateway) CreateProduct(ctx context.Context, name string, amountMinor int64) (ProductRef, error) {
	params := &stripe.ProductParams{
		Name: stripe.String(name),
		DefaultPriceData: &stripe.ProductDefaultPriceDataParams{
			Currency:   stripe.String(g.currency),
			UnitAmount: stripe.Int64(amountMinor),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	product, err := g.api.Products.New(params)
	if err != nil {
		return ProductRef{}, fmt.Errorf("stripe: create product: %w", err)
	}
	ref := ProductRef{ProductID: product.ID}
	if product.DefaultPrice != nil {
		ref.PriceID = product.DefaultPrice.ID
	}
	if ref.PriceID == "" {
		return ProductRef{}, fmt.Errorf("stripe: product %s has no default price", product.ID)
	}
	return ref, nil
}

// CreateCheckoutSession opens a single-item payment session for ref.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, ref ProductRef) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(g.successURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(ref.PriceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return session.URL, session.ID, nil
}

// GetSession fetches a checkout session.
func (g *StripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", id, err)
	}
	return &Session{ID: session.ID, Status: string(session.Status), URL: session.URL}, nil
}

// BreakerGateway guards a Gateway with a circuit breaker so an unavailable
// provider fails fast.
type BreakerGateway struct {
	next   Gateway
	cb     *gobreaker.CircuitBreaker[any]
	logger *slog.Logger
}

// StateObserver receives circuit breaker transitions.
type StateObserver func(name string, from, to gobreaker.State)

// NewBreakerGateway wraps next. The circuit opens after five consecutive
// failures and probes again after timeout.
func NewBreakerGateway(next Gateway, timeout time.Duration, logger *slog.Logger, observe StateObserver) *BreakerGateway {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if observe != nil {
				observe(name, from, to)
			}
		},
	})
	return &BreakerGateway{next: next, cb: cb, logger: logger}
}

// State reports the current breaker state.
func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *BreakerGateway) CreateProduct(ctx context.Context, name string, amountMinor int64) (ProductRef, error) {
	res, err := g.cb.Execute(func() (any, error) {
		return g.next.CreateProduct(ctx, name, amountMinor)
	})
	if err != nil {
		return ProductRef{}, err
	}
	return res.(ProductRef), nil
}

func (g *BreakerGateway) CreateCheckoutSession(ctx context.Context, ref ProductRef) (string, string, error) {
	type opened struct{ url, id string }
	res, err := g.cb.Execute(func() (any, error) {
		url, id, err := g.next.CreateCheckoutSession(ctx, ref)
		return opened{url: url, id: id}, err
	})
	if err != nil {
		return "", "", err
	}
	o := res.(opened)
	return o.url, o.id, nil
}

func (g *BreakerGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	res, err := g.cb.Execute(func() (any, error) {
		return g.next.GetSession(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Session), nil
}

// ErrGatewayDisabled is returned by DisabledGateway.
var ErrGatewayDisabled = errors.New("payment gateway not configured")

// DisabledGateway stands in when no provider key is configured. Payment
// creation answers 502 and reconciliation counts every row as failed.
type DisabledGateway struct{}

func (DisabledGateway) CreateProduct(context.Context, string, int64) (ProductRef, error) {
	return ProductRef{}, ErrGatewayDisabled
}

func (DisabledGateway) CreateCheckoutSession(context.Context, ProductRef) (string, string, error) {
	return "", "", ErrGatewayDisabled
}

func (DisabledGateway) GetSession(context.Context, string) (*Session, error) {
	return nil, ErrGatewayDisabled
}
