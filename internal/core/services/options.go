package services

import (
	"time"

	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
)

// ServiceOption configures the shared behaviour of a service.
type ServiceOption func(*BaseService)

// WithRetryPolicy sets how often a conflicting row mutation is retried.
func WithRetryPolicy(attempts int, backoff time.Duration) ServiceOption {
	return func(s *BaseService) {
		s.Retry = RetryPolicy{Attempts: attempts, Backoff: backoff}
	}
}

// WithClock overrides the time source used for audit fields.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.Now = now
	}
}

func newBaseService(txManager portsrepo.TransactionManager, opts []ServiceOption) BaseService {
	base := BaseService{
		TxManager: txManager,
		Retry:     RetryPolicy{Attempts: 5, Backoff: 25 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
