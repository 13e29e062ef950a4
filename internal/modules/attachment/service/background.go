package attachment

import (
	"context"
	"fmt"
	"sync"

	"anoa.com/attachments/pkg/storage"
	"go.uber.org/zap"
)

// Background runs side effects of a write without holding up the response.
// Tasks outlive the request that started them; their failures are logged and
// never reach the caller. Wait blocks until every started task returned.
type Background struct {
	files  storage.FileStore
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewBackground(files storage.FileStore, logger *zap.Logger) *Background {
	if files == nil {
		files = storage.NewNoopStorage()
	}
	return &Background{files: files, logger: logger}
}

// Go starts fn detached from the cancellation of ctx.
func (b *Background) Go(ctx context.Context, task string, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Warn("Background task panicked", zap.String("task", task), zap.Any("panic", r))
			}
		}()

		if err := fn(detached); err != nil {
			b.logger.Warn("Background task failed", zap.String("task", task), zap.Error(err))
		}
	}()
}

// DeleteFile removes the stored file behind key. Fire and forget: a failure
// leaves a stale file and is not retried.
func (b *Background) DeleteFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	b.Go(ctx, "delete file", func(ctx context.Context) error {
		if err := b.files.DeleteObject(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		b.logger.Debug("Deleted attachment file", zap.String("key", key))
		return nil
	})
}

func (b *Background) Wait() {
	b.wg.Wait()
}
