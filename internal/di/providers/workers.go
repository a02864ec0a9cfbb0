package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/logger"
	"github.com/booksheet/booksheet-server/internal/service"
)

// SheetExpiryJob periodically drops idle sheets.
type SheetExpiryJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SheetExpiryJob) Shutdown() error {
	j.cancel()
	return nil
}

// expiryInterval checks four times per TTL, but at most once a minute.
func expiryInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

// ProvideSheetExpiryJob provides the idle sheet expiry job.
func ProvideSheetExpiryJob(i do.Injector) (*SheetExpiryJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sheets := do.MustInvoke[*service.SheetService](i)

	ctx, cancel := context.WithCancel(context.Background())

	ttl := cfg.Sheet.IdleTTL
	if ttl <= 0 {
		log.Info("Idle sheet expiry disabled")
		return &SheetExpiryJob{cancel: cancel}, nil
	}

	go func() {
		ticker := time.NewTicker(expiryInterval(ttl))
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sheets.ExpireIdle(ctx, ttl)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.WithField("ttl", ttl).Info("Idle sheet expiry started")

	return &SheetExpiryJob{cancel: cancel}, nil
}
