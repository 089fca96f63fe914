package queueaccess

import (
	"fmt"
	"log/slog"

	"reelforge/internal/config"
	"reelforge/internal/ipc"
	"reelforge/internal/queue"
)

// Session represents a queue access handle and its cleanup function. The
// Direct flag reports whether the session bypassed the daemon.
type Session struct {
	Access Access
	Direct bool
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries IPC-backed access first, then falls back to opening
// the queue database directly.
func OpenWithFallback(cfg *config.Config, logger *slog.Logger,
	dial func() (*ipc.Client, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store, cfg, logger),
		Direct: true,
		close:  store.Close,
	}, nil
}
