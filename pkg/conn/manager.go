// Package conn owns the process-wide Tibber connection. The handle is
// created lazily on first use and reused until released; the manager is
// passed explicitly to whoever needs upstream access instead of living in
// a package-level variable.
package conn

import (
	"context"
	"fmt"
	"sync"

	"github.com/germanamz/tibber-mcp/pkg/tibber"
)

// DialFunc builds a ready client. It is expected to authenticate and
// perform the initial metadata refresh before returning.
type DialFunc func(ctx context.Context) (*tibber.Client, error)

// Manager memoizes a single upstream client.
type Manager struct {
	dial DialFunc

	mu     sync.Mutex
	client *tibber.Client
}

// NewManager creates a Manager that builds clients with dial.
func NewManager(dial DialFunc) *Manager {
	return &Manager{dial: dial}
}

// Acquire returns the memoized client, dialing on first use. A failed dial
// is not memoized; the next Acquire retries from scratch.
func (m *Manager) Acquire(ctx context.Context) (*tibber.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	client, err := m.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("conn: acquire: %w", err)
	}

	m.client = client

	return client, nil
}

// Release closes the memoized client, if any. The next Acquire
// reinitializes from scratch.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return
	}

	m.client.Close()
	m.client = nil
}
