package domain

import "errors"

var (
	ErrConnectivity      = errors.New("venue unreachable")
	ErrQuote             = errors.New("swap simulation failed")
	ErrSizingUnavailable = errors.New("no stable sizing route")
	ErrDuplicateTrade    = errors.New("trade already in flight for pair")
	ErrExecution         = errors.New("trade execution failed")
	ErrInvalidToken      = errors.New("token is not part of the pool")
	ErrQueueFull         = errors.New("execution queue full")
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
)
