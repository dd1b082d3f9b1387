package memory

import "sync"

// Memory keeps the most recent transitions an agent has seen, oldest first.
type Memory struct {
	entries  []string
	capacity int
	mu       sync.RWMutex
}

func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
	}
}

// GetAllMessages returns a copy of all entries in memory
func (m *Memory) GetAllMessages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]string, len(m.entries))
	copy(messages, m.entries)
	return messages
}

// Last returns up to n of the newest entries, oldest first.
func (m *Memory) Last(n int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.entries) {
		n = len(m.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	copy(out, m.entries[len(m.entries)-n:])
	return out
}

func (m *Memory) Store(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, data)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Reset forgets everything, typically at the start of an episode.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]string, 0, m.capacity)
}
