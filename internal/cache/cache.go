package cache

import (
	"context"
	"errors"
)

// Record is a stored response for an idempotency key. A pending record marks
// a request that is still running.
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// IdempotencyStore keeps one record per (scope, key).
type IdempotencyStore interface {
	// Begin claims key for a new request. When the key is already taken it
	// returns the existing record and acquired=false.
	Begin(ctx context.Context, scope, key, requestHash string) (existing *Record, acquired bool, err error)
	// Complete replaces the pending marker with the final response.
	Complete(ctx context.Context, scope, key string, rec Record) error
	// Release drops a claim so the client may retry with the same key.
	Release(ctx context.Context, scope, key string) error
}

var ErrRecordVanished = errors.New("idempotency record expired while reading")
