package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
)

// pollApproval asks for the PIX charge status up to PollAttempts times,
// waiting PollInterval before each ask. It stops at the first APPROVED.
// A charge the payment service does not know yet counts as not approved.
func (o *Orchestrator) pollApproval(ctx context.Context, paymentID, token string) (bool, error) {
	timer := time.NewTimer(o.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(o.cfg.PollInterval)
		}
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("%w: payment %s: %w", ErrPaymentPending, paymentID, ctx.Err())
		case <-timer.C:
		}

		status, err := o.payments.GetStatus(ctx, paymentID, token)
		if errors.Is(err, gateway.ErrPaymentNotFound) {
			log.Printf("[Orchestrator] Payment %s not visible yet (attempt %d/%d)", paymentID, attempt, o.cfg.PollAttempts)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, fmt.Errorf("%w: payment %s: %w", ErrPaymentPending, paymentID, ctx.Err())
			}
			return false, err
		}
		if strings.EqualFold(status.Status, statusApproved) {
			return true, nil
		}
	}
	return false, nil
}
