package storage_registry

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/tanmaygrover/namestore/internal/log_service"
)

type InMemoryStorageRegistry struct {
	ls log_service.LogService

	mu      sync.RWMutex
	servers map[StorageServerHandle]bool
	rng     *rand.Rand
}

func NewInMemoryStorageRegistry(ls log_service.LogService) *InMemoryStorageRegistry {
	return &InMemoryStorageRegistry{
		ls:      ls,
		servers: make(map[StorageServerHandle]bool),
		rng:     rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (r *InMemoryStorageRegistry) Contains(handle StorageServerHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.servers[handle]
}

func (r *InMemoryStorageRegistry) Add(handle StorageServerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.servers[handle] {
		return ErrServerAlreadyRegistered
	}
	r.servers[handle] = true

	r.ls.Info(log_service.LogEvent{
		Message:  "Storage server registered",
		Metadata: map[string]any{"data": handle.DataAddress, "control": handle.ControlAddress},
	})
	return nil
}

func (r *InMemoryStorageRegistry) Random() (StorageServerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.servers) == 0 {
		return StorageServerHandle{}, ErrNoServersAvailable
	}

	idx := r.rng.Intn(len(r.servers))
	for handle := range r.servers {
		if idx == 0 {
			return handle, nil
		}
		idx--
	}
	return StorageServerHandle{}, ErrNoServersAvailable
}

func (r *InMemoryStorageRegistry) RandomExcluding(exclude map[StorageServerHandle]bool) (StorageServerHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []StorageServerHandle
	for handle := range r.servers {
		if !exclude[handle] {
			candidates = append(candidates, handle)
		}
	}
	if len(candidates) == 0 {
		return StorageServerHandle{}, false
	}
	return candidates[r.rng.Intn(len(candidates))], true
}

func (r *InMemoryStorageRegistry) Servers() []StorageServerHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	servers := make([]StorageServerHandle, 0, len(r.servers))
	for handle := range r.servers {
		servers = append(servers, handle)
	}
	return servers
}

var _ StorageRegistry = (*InMemoryStorageRegistry)(nil)
