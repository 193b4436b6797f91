package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/haldane/internal/types"
	"go.uber.org/zap"
)

// ProcessReadings provides a standard pattern for processing readings from a
// channel. Processor errors are logged and the loop carries on.
func ProcessReadings(ctx context.Context, wg *sync.WaitGroup, readingChan <-chan types.Reading, processor func(types.Reading) error, name string, logger *zap.SugaredLogger) {
	defer wg.Done()

	for {
		select {
		case r := <-readingChan:
			if err := processor(r); err != nil {
				logger.Errorf("%s reading processor error: %v", name, err)
			}
		case <-ctx.Done():
			logger.Infof("cancellation request received. Cancelling %s readings processor", name)
			return
		}
	}
}

// StartProcessor registers the processor with wg and runs it on its own
// goroutine, returning the channel that feeds it.
func StartProcessor(ctx context.Context, wg *sync.WaitGroup, processor func(types.Reading) error, name string, logger *zap.SugaredLogger) chan<- types.Reading {
	readingChan := make(chan types.Reading, 10)
	wg.Add(1)
	go ProcessReadings(ctx, wg, readingChan, processor, name, logger)
	return readingChan
}
