package sync

import (
	"sync"
)

// Map is a map guarded by a RWMutex. It is safe for concurrent use by multiple goroutines.
//
// Callbacks passed to the *WithFunc variants run outside of the lock unless stated otherwise,
// so they may block without stalling other users of the map.
type Map[K comparable, V any] struct {
	mutex sync.RWMutex
	data  map[K]V
}

// NewMap creates map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		data: make(map[K]V),
	}
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(key K, value V) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[key] = value
}

// Load returns the value stored in the map for a key.
// The ok result indicates whether value was found in the map.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	value, ok = m.data[key]
	return value, ok
}

// LoadOrStore returns the existing value for the key if present.
// Otherwise, it stores and returns the given value. The loaded result is true if the value was loaded, false if stored.
// The check and the store happen under one write lock.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	return m.LoadOrStoreWithFunc(key, func() V { return value })
}

// LoadOrStoreWithFunc is like LoadOrStore, createFunc is called under the lock only when the key is absent.
func (m *Map[K, V]) LoadOrStoreWithFunc(key K, createFunc func() V) (actual V, loaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if v, ok := m.data[key]; ok {
		return v, true
	}
	v := createFunc()
	m.data[key] = v
	return v, false
}

// ReplaceWithFunc calls replaceFunc under the lock with the current value of key and stores the value
// it returns, or deletes the key when doDelete is true. It returns the previous value.
func (m *Map[K, V]) ReplaceWithFunc(key K, replaceFunc func(oldValue V, oldLoaded bool) (newValue V, doDelete bool)) (oldValue V, oldLoaded bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	oldValue, oldLoaded = m.data[key]
	newValue, doDelete := replaceFunc(oldValue, oldLoaded)
	if doDelete {
		delete(m.data, key)
		return oldValue, oldLoaded
	}
	m.data[key] = newValue
	return oldValue, oldLoaded
}

// Range calls f sequentially for each key and value present in the map. If f returns false, range stops the iteration.
// The map is copied under a read lock and f is called on the copy without holding the lock.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mutex.RLock()
	cp := make(map[K]V, len(m.data))
	for k, v := range m.data {
		cp[k] = v
	}
	m.mutex.RUnlock()
	for key, value := range cp {
		if !f(key, value) {
			return
		}
	}
}

// Delete deletes the value for a key.
func (m *Map[K, V]) Delete(key K) (deleted bool) {
	_, deleted = m.LoadAndDelete(key)
	return deleted
}

// LoadAndDelete loads and deletes the value for a key.
func (m *Map[K, V]) LoadAndDelete(key K) (value V, ok bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	value, ok = m.data[key]
	delete(m.data, key)
	return value, ok
}

// PullOutAll extracts internal map data and replace it with empty map.
func (m *Map[K, V]) PullOutAll() map[K]V {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	data := m.data
	m.data = make(map[K]V)
	return data
}

// Length returns number of stored values.
func (m *Map[K, V]) Length() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}
