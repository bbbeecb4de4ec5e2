package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/glorpus-work/clawstrap/internal/logger"
	"github.com/glorpus-work/clawstrap/pkg/errors"
)

// Gateway health check schedule.
const (
	GatewayWarmup       = 5 * time.Second
	GatewayAttempts     = 3
	GatewayProbeTimeout = 5 * time.Second
	GatewayRetryBase    = 2 * time.Second
)

// retrySchedule yields 2s, 4s, 8s.
func retrySchedule() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     GatewayRetryBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         GatewayRetryBase << GatewayAttempts,
	}
	b.Reset()
	return b
}

// verifyGateway waits for the gateway to accept a TCP connection. Each attempt
// is announced before probing; a failed attempt waits 2^k seconds.
func (o *Orchestrator) verifyGateway(ctx context.Context, run *Run) (Outcome, error) {
	port := o.gatewayPort()
	if err := o.sleep(ctx, GatewayWarmup); err != nil {
		return Outcome{}, stepFailedf(err, "Gateway verification interrupted: %v", err)
	}

	schedule := retrySchedule()
	for attempt := 1; attempt <= GatewayAttempts; attempt++ {
		run.Progress(fmt.Sprintf("Checking Gateway... (attempt %d/%d)", attempt, GatewayAttempts))
		if o.Prober.Reachable(ctx, o.gatewayAddr(), GatewayProbeTimeout) {
			return Outcome{Message: fmt.Sprintf("Gateway is running on port %d", port)}, nil
		}

		wait := schedule.NextBackOff()
		logger.Debug("Gateway not responding", logger.Fields{"run_id": run.ID, "attempt": attempt, "wait": wait.String()})
		if err := o.sleep(ctx, wait); err != nil {
			return Outcome{}, stepFailedf(err, "Gateway verification interrupted: %v", err)
		}
	}
	return Outcome{}, stepFailedf(errors.ErrGatewayUnreachable, "Gateway is not responding on port %d", port)
}
