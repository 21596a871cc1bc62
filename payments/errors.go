package payments

import "errors"

var (
	ErrInvalidClient       = errors.New("payments: client is not an active payment client module")
	ErrCallerNotClient     = errors.New("payments: caller is not the client module")
	ErrCallerNotAuthorized = errors.New("payments: caller is neither the client nor an admin")
	ErrInvalidRecipient    = errors.New("payments: invalid payment recipient")
	ErrInvalidAmount       = errors.New("payments: payment amount must be non-zero")
	ErrInvalidTimes        = errors.New("payments: start plus cliff must not exceed end")
	ErrInvalidToken        = errors.New("payments: payment token is not a usable token contract")
	ErrInsufficientBalance = errors.New("payments: client balance does not cover queued orders")
	ErrInvalidStreamID     = errors.New("payments: no active stream with this id")
	ErrNothingToClaim      = errors.New("payments: nothing to claim")
)
