package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Storage persists small key-value records, e.g. finished poll tallies. All
// waiter state stays in-memory and ephemeral; this store only keeps results
// that outlive their poll window.
type Storage struct {
	mu      sync.RWMutex
	memory  Memory
	encoder MemoryEncoder
	logger  *zap.Logger
}

// The Memory interface allows records to be persisted as key-value pairs.
// The default implementation stores all keys and values in a map (i.e.
// in-memory). Other implementations offer actual long term persistence,
// e.g. to redis.
type Memory interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
	Delete(key string) (bool, error)
	Keys() ([]string, error)
	Close() error
}

// A MemoryEncoder is used to encode and decode any values that are stored in
// the Memory. The default implementation uses a JSON encoding.
type MemoryEncoder interface {
	Encode(value interface{}) ([]byte, error)
	Decode(data []byte, target interface{}) error
}

type inMemory struct {
	data map[string][]byte
}

type jsonEncoder struct{}

func NewStorage(logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{
		memory:  newInMemory(),
		encoder: new(jsonEncoder),
		logger:  logger,
	}
}

// Close closes the Memory that is managed by this Storage.
func (s *Storage) Close() error {
	s.mu.Lock()
	err := s.memory.Close()
	s.mu.Unlock()
	return err
}

func (s *Storage) Set(key string, value interface{}) error {
	data, err := s.encoder.Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	s.logger.Debug("Storing record", zap.String("key", key))
	s.mu.Lock()
	err = s.memory.Set(key, data)
	s.mu.Unlock()
	return err
}

func (s *Storage) Get(key string, value interface{}) (bool, error) {
	s.mu.RLock()
	data, ok, err := s.memory.Get(key)
	s.mu.RUnlock()
	if err != nil {
		return false, fmt.Errorf("failed to fetch value: %w", err)
	}
	if !ok || value == nil {
		return ok, nil
	}

	if err := s.encoder.Decode(data, value); err != nil {
		return false, fmt.Errorf("failed to decode value: %w", err)
	}
	return true, nil
}

func (s *Storage) Delete(key string) (bool, error) {
	s.mu.Lock()
	ok, err := s.memory.Delete(key)
	s.mu.Unlock()
	return ok, err
}

func (s *Storage) Keys() ([]string, error) {
	s.mu.RLock()
	keys, err := s.memory.Keys()
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, err
}

// SetMemory replaces the backing Memory, e.g. with the redis implementation.
func (s *Storage) SetMemory(m Memory) {
	s.mu.Lock()
	s.memory = m
	s.mu.Unlock()
}

// SetMemoryEncoder replaces the value encoding.
func (s *Storage) SetMemoryEncoder(enc MemoryEncoder) {
	s.mu.Lock()
	s.encoder = enc
	s.mu.Unlock()
}

func newInMemory() *inMemory {
	return &inMemory{data: map[string][]byte{}}
}

func (m *inMemory) Close() error {
	m.data = map[string][]byte{}
	return nil
}

func (m *inMemory) Delete(key string) (bool, error) {
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *inMemory) Set(key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *inMemory) Get(key string) ([]byte, bool, error) {
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *inMemory) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}

	return keys, nil
}

func (jsonEncoder) Encode(value interface{}) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonEncoder) Decode(data []byte, target interface{}) error {
	return json.Unmarshal(data, target)
}
