package aria2dl

import (
	"log/slog"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/downloader"
)

// Adapter implements the Downloader interface using an aria2 JSON-RPC client.
// It translates lionz download operations into aria2 RPC calls.
type Adapter struct {
	cl  *aria2.Client
	log *slog.Logger
}

// NewAdapter creates a new Adapter using the provided aria2 client.
func NewAdapter(cl *aria2.Client) *Adapter {
	return &Adapter{cl: cl, log: slog.Default()}
}

var _ downloader.Downloader = (*Adapter)(nil)
var _ downloader.EventSource = (*Adapter)(nil)

// SetLogger allows wiring a shared application logger into the adapter.
func (a *Adapter) SetLogger(l *slog.Logger) {
	if l != nil {
		a.log = l
	}
}
