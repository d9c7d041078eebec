package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/docworld/internal/config"
	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/observability/log"
	"github.com/zeusync/docworld/internal/core/reactive"
	"github.com/zeusync/docworld/internal/core/schema/registry"
	"github.com/zeusync/docworld/internal/core/sync"
)

// ProviderSet builds a running Synchronizer from a config and a document
// handle.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideRuntime,
	ProvideRegistry,
	ProvideSyncOptions,
	ProvideSynchronizer,
	wire.Bind(new(registry.SchemaRegistry), new(*registry.Registry)),
	wire.Bind(new(log.Log), new(*log.Logger)),
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.LogLevel())
}

func ProvideRuntime() *reactive.Runtime {
	return reactive.NewRuntime()
}

func ProvideRegistry(cfg *config.Config) (*registry.Registry, error) {
	return cfg.Registry()
}

func ProvideSyncOptions(cfg *config.Config, l log.Log) []sync.Option {
	return []sync.Option{
		sync.WithLogger(l),
		sync.WithProtocol(cfg.Protocol()),
	}
}

func ProvideSynchronizer(ctx context.Context, rt *reactive.Runtime, handle document.Handle, reg registry.SchemaRegistry, opts []sync.Option) (*sync.Synchronizer, error) {
	return sync.Open(ctx, rt, handle, reg, opts...)
}
