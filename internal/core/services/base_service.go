package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fee_ledger_app/internal/apperrors"
	"github.com/SscSPs/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fee_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/fee_ledger_app/internal/middleware"
	"github.com/jackc/pgx/v5"
)

// RetryPolicy bounds how often a conflicting row mutation is re-run.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration // multiplied by the attempt number
}

// BaseService provides common functionality for all services
type BaseService struct {
	TxManager portsrepo.TransactionManager
	Retry     RetryPolicy
	Now       func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

func (s *BaseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// inTx runs fn in a transaction, committing when fn succeeds.
func (s *BaseService) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.TxManager.Begin(ctx)
	if err != nil {
		return err
	}
	// Ignored once the transaction has been committed
	defer s.TxManager.Rollback(ctx, tx)

	if err := fn(tx); err != nil {
		return err
	}
	return s.TxManager.Commit(ctx, tx)
}

// withConflictRetry re-runs fn while it fails with ErrConflict, up to the retry budget.
func (s *BaseService) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		if attempt == attempts {
			break
		}
		s.LogDebug(ctx, "Retrying after write conflict",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		timer := time.NewTimer(s.Retry.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", apperrors.ErrTransient, ctx.Err())
		case <-timer.C:
		}
	}
	s.LogError(ctx, err, "Write conflict outlived retry budget",
		slog.String("operation", op),
		slog.Int("attempts", attempts))
	return err
}

// checkScope validates the scope and reports rows belonging to another scope as not found.
func checkScope(scope domain.Scope, b *domain.FeeBalance) error {
	if !b.InScope(scope) {
		return fmt.Errorf("%w: fee balance %s", apperrors.ErrNotFound, b.Key())
	}
	return nil
}

// validateRequest checks the scope and key of a row-targeted request.
func validateRequest(scope domain.Scope, key domain.BalanceKey) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return key.Validate()
}
