package apperrors

import (
	"errors"
)

var (
	ErrShutdown = errors.New("shutdown error")

	ErrUnknownStatsBackend  = errors.New("unknown stats backend")
	ErrStatsTableIsEmpty    = errors.New("stats table and record id must be set")
	ErrNoBrokers            = errors.New("no queue brokers configured")
	ErrQueueIsNotConfigured = errors.New("either queue name or queue url must be set")

	ErrQueueDoesNotExist = errors.New("queue does not exist")
)
