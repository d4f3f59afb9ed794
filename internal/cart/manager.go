package cart

import "sync"

// Manager hands out one cart per shopper session. Sessions are independent
// actors; the manager only guards the session map itself.
type Manager struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewManager() *Manager {
	return &Manager{carts: make(map[string]*Cart)}
}

// Get returns the cart for sessionID, creating an empty one on first use.
func (m *Manager) Get(sessionID string) *Cart {
	m.mu.RLock()
	c, ok := m.carts[sessionID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[sessionID]; ok {
		return c
	}
	c = New()
	m.carts[sessionID] = c
	return c
}

// Drop discards the session's cart entirely.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
}
