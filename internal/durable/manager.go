package durable

import (
	"time"

	"go.uber.org/zap"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

// EvictionPolicy selects the victim when the manager is at capacity.
type EvictionPolicy int

const (
	// EvictLRU picks the object with the oldest last access.
	EvictLRU EvictionPolicy = iota
	// EvictLFU picks the object with the smallest access count.
	EvictLFU
	// EvictTTL picks the hibernating object with the oldest last access;
	// active objects are never candidates.
	EvictTTL
	// EvictManual never auto-evicts.
	EvictManual
)

// Config configures a Manager.
type Config struct {
	StorageDir           string
	MaxObjects           int
	HibernationTimeout   time.Duration
	EvictionPolicy       EvictionPolicy
	WalEnabled           bool
	AutoPersistThreshold int
	MaxObjectSize        int
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		StorageDir:           "durable_data",
		MaxObjects:           1024,
		HibernationTimeout:   5 * time.Minute,
		EvictionPolicy:       EvictLRU,
		WalEnabled:           true,
		AutoPersistThreshold: DefaultPersistThreshold,
		MaxObjectSize:        1 << 20,
	}
}

// Stats are the manager's operational counters.
type Stats struct {
	TotalReads   uint64
	TotalWrites  uint64
	CacheHits    uint64
	CacheMisses  uint64
	Evictions    uint64
	Hibernations uint64
}

// Manager owns a bounded pool of durable objects and their lifecycle:
// loading, hibernation, eviction, and persistence. It holds exclusive
// mutable access to its object map; the storage backend sees one request at
// a time.
type Manager struct {
	objects map[string]*DurableObject
	config  Config
	storage StorageBackend
	stats   Stats
	log     *zap.Logger
}

// NewManager creates a manager over a file-backed storage directory,
// WAL-journaled when the config enables it.
func NewManager(config Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var storage StorageBackend
	var err error
	if config.WalEnabled {
		storage, err = NewWalFileStorage(config.StorageDir)
	} else {
		storage, err = NewFileStorage(config.StorageDir)
	}
	if err != nil {
		return nil, err
	}
	return NewManagerWithStorage(config, storage, log), nil
}

// NewManagerWithStorage creates a manager over an explicit backend.
func NewManagerWithStorage(config Config, storage StorageBackend, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		objects: make(map[string]*DurableObject),
		config:  config,
		storage: storage,
		log:     log,
	}
}

// GetOrCreate returns the managed object for id, reactivating a hibernating
// one, evicting per policy when the pool is full, and loading persisted
// state from the backend for unseen ids.
func (m *Manager) GetOrCreate(id string) (*DurableObject, error) {
	if obj, ok := m.objects[id]; ok {
		m.stats.CacheHits++
		obj.touch()
		return obj, nil
	}

	m.stats.CacheMisses++

	if len(m.objects) >= m.config.MaxObjects {
		if err := m.evictOne(); err != nil {
			return nil, err
		}
	}

	obj, err := NewDurableObject(id, m.storage)
	if err != nil {
		return nil, err
	}
	obj.SetPersistThreshold(m.config.AutoPersistThreshold)
	obj.touch()
	m.objects[id] = obj
	m.log.Debug("durable object created", zap.String("id", id))
	return obj, nil
}

// Read fetches a key from an object.
func (m *Manager) Read(objectID, key string) (vm.Value, bool, error) {
	m.stats.TotalReads++
	obj, err := m.GetOrCreate(objectID)
	if err != nil {
		return vm.UndefinedVal(), false, err
	}
	v, ok := obj.Get(key)
	return v, ok, nil
}

// Write stores a key into an object, enforcing the max value size.
func (m *Manager) Write(objectID, key string, value vm.Value) error {
	if m.config.MaxObjectSize > 0 {
		encoded, err := marshalState(map[string]vm.Value{key: value})
		if err != nil {
			return err
		}
		if len(encoded) > m.config.MaxObjectSize {
			return errors.NewModuleError("Value exceeds max_object_size")
		}
	}
	m.stats.TotalWrites++
	obj, err := m.GetOrCreate(objectID)
	if err != nil {
		return err
	}
	return obj.Set(key, value)
}

// DeleteKey removes a key from an object.
func (m *Manager) DeleteKey(objectID, key string) (bool, error) {
	m.stats.TotalWrites++
	obj, err := m.GetOrCreate(objectID)
	if err != nil {
		return false, err
	}
	return obj.Delete(key)
}

// PersistObject flushes one object if dirty.
func (m *Manager) PersistObject(id string) error {
	obj, ok := m.objects[id]
	if !ok {
		return errors.NewModuleError("Object not found: %s", id)
	}
	if !obj.IsDirty() {
		return nil
	}
	return obj.Persist()
}

// PersistAll flushes every dirty object.
func (m *Manager) PersistAll() error {
	for id, obj := range m.objects {
		if obj.IsDirty() {
			if err := obj.Persist(); err != nil {
				return err
			}
			m.log.Debug("durable object persisted", zap.String("id", id))
		}
	}
	return nil
}

// HibernateIdle marks active objects idle past the timeout as hibernating
// and returns their ids. Any later read or write reactivates them.
func (m *Manager) HibernateIdle() []string {
	var hibernated []string
	for id, obj := range m.objects {
		if obj.State == StateActive && time.Since(obj.lastAccessed) > m.config.HibernationTimeout {
			obj.State = StateHibernating
			m.stats.Hibernations++
			hibernated = append(hibernated, id)
		}
	}
	if len(hibernated) > 0 {
		m.log.Info("hibernated idle objects", zap.Strings("ids", hibernated))
	}
	return hibernated
}

// evictOne removes one object per the configured policy. Dirty victims
// persist before leaving the pool.
func (m *Manager) evictOne() error {
	var victim string
	found := false

	switch m.config.EvictionPolicy {
	case EvictLRU:
		var oldest time.Time
		for id, obj := range m.objects {
			if obj.State == StateCorrupted {
				continue
			}
			if !found || obj.lastAccessed.Before(oldest) {
				victim, oldest, found = id, obj.lastAccessed, true
			}
		}
	case EvictLFU:
		var least uint64
		for id, obj := range m.objects {
			if obj.State == StateCorrupted {
				continue
			}
			if !found || obj.accessCount < least {
				victim, least, found = id, obj.accessCount, true
			}
		}
	case EvictTTL:
		var oldest time.Time
		for id, obj := range m.objects {
			if obj.State != StateHibernating {
				continue
			}
			if !found || obj.lastAccessed.Before(oldest) {
				victim, oldest, found = id, obj.lastAccessed, true
			}
		}
	case EvictManual:
		// Never auto-evict.
	}

	if !found {
		return nil
	}
	return m.Evict(victim)
}

// Evict removes a specific object, persisting it first when dirty.
func (m *Manager) Evict(id string) error {
	if obj, ok := m.objects[id]; ok {
		if obj.IsDirty() {
			if err := obj.Persist(); err != nil {
				return err
			}
		}
		obj.State = StateEvicted
	}
	delete(m.objects, id)
	m.stats.Evictions++
	m.log.Debug("durable object evicted", zap.String("id", id))
	return nil
}

// MarkCorrupted flags an object so eviction skips it.
func (m *Manager) MarkCorrupted(id string) {
	if obj, ok := m.objects[id]; ok {
		obj.State = StateCorrupted
		m.log.Warn("durable object marked corrupted", zap.String("id", id))
	}
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats { return m.stats }

// ObjectCount is the number of tracked objects.
func (m *Manager) ObjectCount() int { return len(m.objects) }

// ObjectIDs lists tracked object ids.
func (m *Manager) ObjectIDs() []string {
	ids := make([]string, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	return ids
}

// ObjectState reports the lifecycle state of a tracked object.
func (m *Manager) ObjectState(id string) (ObjectState, bool) {
	obj, ok := m.objects[id]
	if !ok {
		return StateEvicted, false
	}
	return obj.State, true
}
