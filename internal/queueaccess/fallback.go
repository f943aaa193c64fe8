package queueaccess

import (
	"fmt"

	"soundcheck/internal/ipc"
	"soundcheck/internal/queue"
)

// Session bundles an Access with whatever needs closing behind it, either an
// IPC connection or a direct store handle.
type Session struct {
	Access Access
	close  func() error
}

func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback prefers talking to the running daemon over the socket and
// opens the queue database directly when no daemon answers. CLI queue
// commands work either way.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openStore func() (*queue.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: NewIPCAccess(client), close: client.Close}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{Access: NewStoreAccess(store), close: store.Close}, nil
}
