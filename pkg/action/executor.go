package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Executor delivers interventions through registered actions, retrying
// failed attempts with backoff.
type Executor struct {
	registry *Registry
	metrics  *metrics.Metrics
}

// NewExecutor creates a new action executor. m may be nil.
func NewExecutor(registry *Registry, m *metrics.Metrics) *Executor {
	return &Executor{
		registry: registry,
		metrics:  metrics.OrNew(m),
	}
}

// Deliver runs the action until it succeeds, returns a permanent error or
// exhausts its retry policy. Exhaustion wraps ErrMaxRetriesExceeded. The
// result is never nil when the action exists.
func (e *Executor) Deliver(ctx context.Context, actionID string, iv intervention.Intervention) (*ActionResult, error) {
	action := e.registry.GetEnabled(actionID)
	if action == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	if action.Carries() != iv.Type {
		return nil, fmt.Errorf("%w: %s carries %s, not %s", ErrWrongChannel, actionID, action.Carries(), iv.Type)
	}

	cfg := action.Config()
	policy := cfg.RetryPolicy()
	log := logrus.WithFields(logrus.Fields{
		"action_id":       actionID,
		"intervention_id": iv.ID,
		"actor_id":        iv.ActorID,
		"stage":           "executor",
	})

	attempts := 0
	permanent := false
	operation := func() error {
		attempts++
		err := action.Execute(ctx, iv, attempts)
		result := "ok"
		if err != nil {
			result = "error"
			var perm *backoff.PermanentError
			permanent = errors.As(err, &perm)
			log.WithField("attempt", attempts).WithError(err).Warn("delivery attempt failed")
		}
		e.metrics.DeliveryAttempts.WithLabelValues(cfg.Type, result).Inc()
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(newBackOff(policy), ctx))
	if err != nil {
		if !permanent && ctx.Err() == nil {
			err = fmt.Errorf("%w after %d attempts: %v", ErrMaxRetriesExceeded, attempts, err)
		}
		log.WithField("attempts", attempts).WithError(err).Error("delivery failed")
		return NewActionError(actionID, attempts, err), err
	}

	log.WithField("attempts", attempts).Info("intervention delivered")
	return NewActionResult(actionID, attempts), nil
}

// newBackOff builds the retry schedule. MaxAttempts counts the first try.
func newBackOff(policy RetryConfig) backoff.BackOff {
	var b backoff.BackOff
	switch policy.Backoff {
	case "constant":
		b = backoff.NewConstantBackOff(policy.InitialInterval)
	default:
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = policy.InitialInterval
		if policy.MaxInterval > 0 {
			exp.MaxInterval = policy.MaxInterval
		}
		exp.RandomizationFactor = 0
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}
	retries := policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}
