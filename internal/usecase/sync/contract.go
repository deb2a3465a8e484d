package sync

import (
	"context"

	domidx "github.com/kailas-cloud/tickerdex/internal/domain/index"
	"github.com/kailas-cloud/tickerdex/internal/domain/ticker"
)

// Syncer transfers a ticker's artifacts between local and remote storage.
type Syncer interface {
	SyncToRemote(ctx context.Context, symbol string) domidx.SyncReport
	SyncFromRemote(ctx context.Context, symbol string) domidx.SyncReport
}

// Loader reads a ticker's index from local storage.
type Loader interface {
	Load(ctx context.Context, symbol string) (domidx.Index, bool, error)
}

// Lister enumerates tickers on either side.
type Lister interface {
	LocalTickers() ([]ticker.Symbol, error)
	RemoteTickers(ctx context.Context) ([]ticker.Symbol, error)
}

// Store is everything the sync service needs from the index store.
type Store interface {
	Syncer
	Loader
	Lister
}
