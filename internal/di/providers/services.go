package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/logger"
	"github.com/booksheet/booksheet-server/internal/ratelimit"
	"github.com/booksheet/booksheet-server/internal/service"
)

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

// ProvideSheetService provides the sheet session service.
func ProvideSheetService(i do.Injector) (*service.SheetService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*MetricsHandle](i)

	return service.NewSheetService(cfg.Sheet, m.Metrics, log.Logger), nil
}

// LoadLimiterHandle wraps the per-client load limiter with Shutdownable.
type LoadLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LoadLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideLoadLimiter provides the rate limiter guarding imports and generation.
func ProvideLoadLimiter(i do.Injector) (*LoadLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(
		ratelimit.PerMinute(cfg.RateLimit.LoadsPerMinute),
		cfg.RateLimit.Burst,
		limiterIdleTTL,
	)
	return &LoadLimiterHandle{KeyedRateLimiter: limiter}, nil
}
