package memctx

// Manager tracks the current context of a backend.
type Manager struct {
	top     *Context
	current *Context
}

// NewManager creates a manager whose current context is a fresh top context.
func NewManager() *Manager {
	top := NewTop("TopMemoryContext")
	return &Manager{top: top, current: top}
}

func (m *Manager) Top() *Context { return m.top }

func (m *Manager) Current() *Context { return m.current }

// Switch makes c current and returns the previous context.
func (m *Manager) Switch(c *Context) *Context {
	prev := m.current
	m.current = c
	return prev
}
