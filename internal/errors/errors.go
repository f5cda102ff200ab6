// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrStoreUnreachable = errors.New("rule store unreachable")
	ErrDuplicateRule    = errors.New("duplicate active rule")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrFeedUnavailable  = errors.New("market data feed unavailable")
	ErrConfigInvalid    = errors.New("invalid configuration")
)

// StoreError represents an error from the rule store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// FeedError represents an error from the market data provider.
type FeedError struct {
	Ticker  string
	Message string
	Err     error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed error [%s]: %s: %v", e.Ticker, e.Message, e.Err)
	}
	return fmt.Sprintf("feed error [%s]: %s", e.Ticker, e.Message)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(ticker, message string, err error) *FeedError {
	return &FeedError{Ticker: ticker, Message: message, Err: err}
}

// NotifyError represents a failed notification attempt on one channel.
type NotifyError struct {
	Channel string
	Detail  string
	Err     error
}

func (e *NotifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("notify error [%s]: %s: %v", e.Channel, e.Detail, e.Err)
	}
	return fmt.Sprintf("notify error [%s]: %s", e.Channel, e.Detail)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(channel, detail string, err error) *NotifyError {
	return &NotifyError{Channel: channel, Detail: detail, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
