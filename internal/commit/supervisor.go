package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// ErrExhausted marks a commit that failed every permitted attempt.
var ErrExhausted = errors.New("commit attempts exhausted")

// Pinger probes the underlying storage connection between attempts.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Policy is the retry schedule for supervised commits.
type Policy struct {
	MaxAttempts uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      float64
}

// PolicyFromConfig builds a Policy from the commit configuration section.
func PolicyFromConfig(cfg config.Commit) Policy {
	return Policy{
		MaxAttempts: uint64(cfg.MaxAttempts),
		BaseBackoff: time.Duration(cfg.BaseBackoffMillis) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.MaxBackoffMillis) * time.Millisecond,
		Jitter:      cfg.Jitter,
	}
}

// Supervisor retries transient storage failures around a commit closure.
type Supervisor struct {
	policy Policy
	probe  Pinger
	logger *slog.Logger
}

func NewSupervisor(policy Policy, probe Pinger, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{policy: policy, probe: probe, logger: logger}
}

// Run executes op until it succeeds, fails permanently, or the retry
// budget runs out. Transient failures are retried with exponential backoff;
// anything else aborts immediately. On exhaustion the returned error wraps
// ErrExhausted so the caller can fail the episode deterministically.
func (s *Supervisor) Run(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	policy := s.policy
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 1
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.BaseBackoff
	expo.MaxInterval = policy.MaxBackoff
	expo.RandomizationFactor = policy.Jitter
	expo.MaxElapsedTime = 0
	expo.Reset()

	attempt := 0
	retryable := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return backoff.Permanent(err)
		}

		s.logger.Warn("commit attempt failed",
			logging.String("operation", operation),
			logging.Int("attempt", attempt),
			logging.Error(err))

		if s.probe != nil {
			if probeErr := s.probe.Ping(ctx); probeErr != nil {
				s.logger.Warn("storage probe failed after commit attempt",
					logging.String("operation", operation),
					logging.Error(probeErr))
			}
		}
		return err
	}

	schedule := backoff.WithContext(backoff.WithMaxRetries(expo, policy.MaxAttempts-1), ctx)
	err := backoff.Retry(retryable, schedule)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	// backoff.Retry unwraps Permanent before returning, so classify the
	// bare error instead of looking for the wrapper.
	if !Transient(err) {
		return services.Wrap(services.ErrUnknown, "commit", operation, "commit failed", err)
	}
	return services.Wrap(services.ErrTransientStorage, "commit", operation,
		fmt.Sprintf("giving up after %d attempts", attempt),
		fmt.Errorf("%w: %w", ErrExhausted, err))
}

// Transient reports whether an error is worth retrying. Sentinel-classified
// transient errors count, plus the SQLite busy and locked shapes that
// surface as plain strings from the driver.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if services.IsTransient(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"disk i/o error",
		"connection reset",
		"broken pipe",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
