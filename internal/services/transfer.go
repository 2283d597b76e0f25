package services

import (
	"context"

	"github.com/openraise/escrow-backend/internal/logger"
)

// ValueTransfer moves currency to a recipient. It is the only external
// side effect the ledger performs and must never be assumed to succeed:
// a nil return is the sole success signal. Implementations live outside
// the core (treasury HTTP client, on-chain adapter, mocks in tests).
type ValueTransfer interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// loggingTransfer records intended payouts without moving money. It is
// the default adapter for environments with no treasury endpoint wired.
type loggingTransfer struct {
	log *logger.Logger
}

func NewLoggingTransfer(baseLog *logger.Logger) ValueTransfer {
	return &loggingTransfer{log: baseLog.With("service", "LoggingTransfer")}
}

func (lt *loggingTransfer) Transfer(ctx context.Context, to string, amount int64) error {
	lt.log.Info("Transfer recorded (dry-run mode, no money moved)", "to", to, "amount", amount)
	return nil
}
