//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/docworld/internal/config"
	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/core/sync"
)

func InitializeSynchronizer(ctx context.Context, cfg *config.Config, handle document.Handle) (*sync.Synchronizer, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
