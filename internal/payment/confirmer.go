// Package payment bridges the backend's payment-intent endpoint and an
// external card-confirmation step, finishing with order persistence. The
// confirmation widget itself is a capability, not a library call: anything
// that can turn an intent secret plus billing input into a terminal
// success/decline satisfies Confirmer.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BillingDetails is what the confirmation step collects alongside the card
// input the widget owns.
type BillingDetails struct {
	Email string
	Name  string
}

// DeclineError is a provider-reported confirmation failure: the card was
// refused, not the transport. Surfaced verbatim to the user; never retried
// automatically.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// IsDecline reports whether err is a provider decline rather than a
// transport failure.
func IsDecline(err error) bool {
	var declineErr *DeclineError
	return errors.As(err, &declineErr)
}

// Confirmer drives the external confirmation step for one intent secret.
// Implementations return the provider's transaction id on settled success, a
// *DeclineError on refusal, and any other error for transport trouble.
type Confirmer interface {
	Confirm(ctx context.Context, intentSecret string, billing BillingDetails) (string, error)
}

// SimulatedConfirmer is a stand-in provider for environments without real
// payment infrastructure: it settles everything except a configurable decline
// list. The zero value approves every confirmation.
type SimulatedConfirmer struct {
	// DeclineEmails refuses confirmations for these billing emails.
	DeclineEmails map[string]string // email -> decline reason
}

func (c *SimulatedConfirmer) Confirm(_ context.Context, intentSecret string, billing BillingDetails) (string, error) {
	if intentSecret == "" {
		return "", fmt.Errorf("confirm: empty intent secret")
	}
	if reason, ok := c.DeclineEmails[billing.Email]; ok {
		return "", &DeclineError{Reason: reason}
	}
	return fmt.Sprintf("TXN-%d", time.Now().UnixNano()), nil
}
