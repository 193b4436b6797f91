// Package storage defines the contract shared by the dive sample storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/haldane/internal/types"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.Reading
}
