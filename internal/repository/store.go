// Package repository holds the key/value stores backing the chat widget's
// persisted state. Every store treats values as opaque strings.
package repository

import (
	"context"
	"errors"
	"strings"
)

// ReadWriter is the key/value contract implemented by every store.
type ReadWriter interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
}

var errEmptyKey = errors.New("repository: key must not be empty")

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errEmptyKey
	}
	return nil
}
