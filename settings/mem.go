package settings

import "sync"

// MemStore keeps namespaces in RAM. It is the store used in tests and on
// boards without a durable backend wired up; contents do not survive a
// reset.
type MemStore struct {
	mu sync.RWMutex
	ns map[string]map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{ns: make(map[string]map[string]string)}
}

func (s *MemStore) Open(namespace string) (Namespace, error) {
	s.mu.Lock()
	if _, ok := s.ns[namespace]; !ok {
		s.ns[namespace] = make(map[string]string)
	}
	s.mu.Unlock()
	return &memNamespace{store: s, name: namespace}, nil
}

func (s *MemStore) Close() error { return nil }

type memNamespace struct {
	store *MemStore
	name  string
}

func (n *memNamespace) GetString(key, def string) string {
	n.store.mu.RLock()
	defer n.store.mu.RUnlock()
	if v, ok := n.store.ns[n.name][key]; ok {
		return v
	}
	return def
}

func (n *memNamespace) SetString(key, value string) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	m := n.store.ns[n.name]
	if m == nil {
		m = make(map[string]string)
		n.store.ns[n.name] = m
	}
	m[key] = value
	return nil
}

func (n *memNamespace) EraseKey(key string) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	delete(n.store.ns[n.name], key)
	return nil
}

func (n *memNamespace) EraseAll() error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	n.store.ns[n.name] = make(map[string]string)
	return nil
}
