package events

import "sync"

// MemoryPublisher records every published event in memory. Used by
// tests and as the dev-mode default when no NATS connection is
// configured.
type MemoryPublisher struct {
	mu sync.Mutex

	Persistence  []PositionPersistence
	MarginCalls  []MarginCallHit
	ToppingUps   []ToppingUpDelta
	PendingReady []PendingReadyToExecute
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) PublishPositionPersistence(e PositionPersistence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persistence = append(m.Persistence, e)
	return nil
}

func (m *MemoryPublisher) PublishMarginCallHit(e MarginCallHit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarginCalls = append(m.MarginCalls, e)
	return nil
}

func (m *MemoryPublisher) PublishToppingUpDelta(e ToppingUpDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ToppingUps = append(m.ToppingUps, e)
	return nil
}

func (m *MemoryPublisher) PublishPendingReadyToExecute(e PendingReadyToExecute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PendingReady = append(m.PendingReady, e)
	return nil
}
