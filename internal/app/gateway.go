package app

import (
	"log/slog"

	"github.com/learnhub/learnhub/internal/payments"
)

// NewPaymentGateway selects the payment provider for cfg. Without an API key,
// or in test mode, payments run against payments.DisabledGateway.
func NewPaymentGateway(cfg *Config, logger *slog.Logger, observe payments.StateObserver) payments.Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil || cfg.StripeAPIKey == "" || InTestMode() {
		logger.Warn("payment gateway disabled")
		return payments.DisabledGateway{}
	}
	stripeGateway := payments.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeCurrency, cfg.StripeSuccessURL)
	return payments.NewBreakerGateway(stripeGateway, cfg.StripeBreakerTimeout, logger, observe)
}
