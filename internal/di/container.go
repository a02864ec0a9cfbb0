// Package di provides dependency injection configuration for the Booksheet server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/booksheet/booksheet-server/internal/config"
	"github.com/booksheet/booksheet-server/internal/di/providers"
	"github.com/booksheet/booksheet-server/internal/logger"
	"github.com/booksheet/booksheet-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Business services
	do.Provide(injector, providers.ProvideLoadLimiter)
	do.Provide(injector, providers.ProvideSheetService)

	// Workers
	do.Provide(injector, providers.ProvideSheetExpiryJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.MetricsHandle](injector)
	_ = do.MustInvoke[*providers.LoadLimiterHandle](injector)
	_ = do.MustInvoke[*service.SheetService](injector)
	_ = do.MustInvoke[*providers.SheetExpiryJob](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
