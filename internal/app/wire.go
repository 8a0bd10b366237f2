//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
)

var providerSet = wire.NewSet(
	provideSettings,
	provideLogger,
	provideRegistry,
	provideFactory,
	provideIndex,
	provideEmbeddingCache,
	provideImageEmbedder,
	provideMedia,
	provideEngine,
	provideSearch,
	provideIngestor,
	wire.Struct(new(App), "*"),
)

// InitializeApp builds every component from settings. The cleanup function
// closes the index, the cache connection and flushes the logger.
func InitializeApp(ctx context.Context, path ConfigPath, verbose Verbose) (*App, func(), error) {
	wire.Build(providerSet)
	return nil, nil, nil
}
