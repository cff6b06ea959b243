package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/farmdirect/marketplace_backend/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeResult is the provider's answer to a charge or refund attempt.
type ChargeResult struct {
	Reference string
	Status    models.PaymentStatus
	Message   string
}

// PaymentProvider is the opaque external charging capability. Calls go
// out over the network and must never run inside a database
// transaction or under a held lock.
type PaymentProvider interface {
	Name() string
	Charge(ctx context.Context, amount decimal.Decimal, method string) (*ChargeResult, error)
	Refund(ctx context.Context, reference string) (*ChargeResult, error)
}

// LocalPaymentProvider approves every charge. It backs development and
// test environments; production wires a real gateway behind the same
// interface.
type LocalPaymentProvider struct{}

func (LocalPaymentProvider) Name() string { return "local" }

func (LocalPaymentProvider) Charge(_ context.Context, amount decimal.Decimal, _ string) (*ChargeResult, error) {
	if amount.Sign() <= 0 {
		return &ChargeResult{
			Reference: uuid.NewString(),
			Status:    models.PaymentStatusFailed,
			Message:   "amount must be positive",
		}, nil
	}
	return &ChargeResult{
		Reference: fmt.Sprintf("local_%s", uuid.NewString()),
		Status:    models.PaymentStatusSucceeded,
	}, nil
}

func (LocalPaymentProvider) Refund(_ context.Context, reference string) (*ChargeResult, error) {
	return &ChargeResult{
		Reference: reference,
		Status:    models.PaymentStatusRefunded,
	}, nil
}

// DefaultPaymentProvider picks the provider by PAYMENT_PROVIDER. Only
// the local provider ships here; unknown names fall back to it with
// the name preserved for the payment rows.
func DefaultPaymentProvider() PaymentProvider {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("PAYMENT_PROVIDER")))
	switch name {
	case "", "local":
		return LocalPaymentProvider{}
	default:
		return namedProvider{LocalPaymentProvider{}, name}
	}
}

type namedProvider struct {
	LocalPaymentProvider
	name string
}

func (p namedProvider) Name() string { return p.name }
