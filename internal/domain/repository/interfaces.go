package repository

import (
	"context"
	"encoding/json"

	"SupraView/internal/domain/models"
)

// QuoteSource fetches OHLC-style price statistics from the catalog feed.
// An empty slice with a nil error is a valid response; callers decide
// whether emptiness is itself an error for their call site.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error)
}

// ViewCaller issues a read-only on-chain view function call and returns the
// positional result tuple undecoded.
type ViewCaller interface {
	CallView(ctx context.Context, function string, typeArgs []string, args []interface{}) ([]json.RawMessage, error)
}

// EventSink receives every emitted price update. Implementations must not
// block the poll loop for long; publish failures are logged, not fatal.
type EventSink interface {
	Publish(ctx context.Context, u *models.PriceUpdate) error
	Close() error
}

// WalletSession is the wallet-extension boundary. The core only consumes the
// account id a session resolves; signing and persistence live outside. This
// port is intentionally unimplemented here: no in-process implementation can
// exist because sessions live in the user's wallet extension, so callers pass
// the resolved account id directly (see the positions accessor) and session
// lifecycle stays with whatever hosts the wallet bridge.
type WalletSession interface {
	Init(ctx context.Context) error
	IsAvailable() bool
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	SubmitTransaction(ctx context.Context, payload interface{}) (string, error)
}

// Metrics abstracts the metrics recorder.
type Metrics interface {
	RecordPollCycle(pair, outcome string)
	RecordError(kind string)
	RecordLastPrice(pair string, price float64)
	RecordLatency(op string, seconds float64)
}
