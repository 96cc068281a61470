package namespace_service

import (
	"sort"
	"sync"

	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

type InMemoryNamespaceService struct {
	ls log_service.LogService

	mu           sync.RWMutex
	directorySet map[dfspath.Path]bool
	fileMap      map[dfspath.Path]map[storage_registry.StorageServerHandle]bool
}

func NewInMemoryNamespaceService(ls log_service.LogService) *InMemoryNamespaceService {
	ns := &InMemoryNamespaceService{
		ls:           ls,
		directorySet: make(map[dfspath.Path]bool),
		fileMap:      make(map[dfspath.Path]map[storage_registry.StorageServerHandle]bool),
	}
	ns.directorySet[dfspath.Root()] = true
	return ns
}

func (ns *InMemoryNamespaceService) HasPath(p dfspath.Path) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.hasPathLocked(p)
}

func (ns *InMemoryNamespaceService) hasPathLocked(p dfspath.Path) bool {
	if ns.directorySet[p] {
		return true
	}
	_, ok := ns.fileMap[p]
	return ok
}

func (ns *InMemoryNamespaceService) IsDirectory(p dfspath.Path) (bool, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	if ns.directorySet[p] {
		return true, nil
	}
	if _, ok := ns.fileMap[p]; ok {
		return false, nil
	}
	return false, ErrPathNotFound
}

func (ns *InMemoryNamespaceService) ListChildren(dir dfspath.Path) ([]string, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	if !ns.directorySet[dir] {
		if _, ok := ns.fileMap[dir]; ok {
			return nil, ErrNotADirectory
		}
		return nil, ErrPathNotFound
	}

	seen := make(map[string]bool)
	collect := func(p dfspath.Path) {
		if p.IsRoot() {
			return
		}
		parent, err := p.Parent()
		if err != nil || parent != dir {
			return
		}
		last, err := p.Last()
		if err == nil {
			seen[last] = true
		}
	}

	for p := range ns.directorySet {
		collect(p)
	}
	for p := range ns.fileMap {
		collect(p)
	}

	children := make([]string, 0, len(seen))
	for name := range seen {
		children = append(children, name)
	}
	sort.Strings(children)
	return children, nil
}

func (ns *InMemoryNamespaceService) AddFile(p dfspath.Path, handle storage_registry.StorageServerHandle) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.addFileLocked(p, handle)
}

func (ns *InMemoryNamespaceService) addFileLocked(p dfspath.Path, handle storage_registry.StorageServerHandle) {
	replicas, ok := ns.fileMap[p]
	if !ok {
		replicas = make(map[storage_registry.StorageServerHandle]bool)
		ns.fileMap[p] = replicas
	}
	replicas[handle] = true
}

func (ns *InMemoryNamespaceService) AddDirectory(p dfspath.Path) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.directorySet[p] = true
}

func (ns *InMemoryNamespaceService) FileHandles(p dfspath.Path) ([]storage_registry.StorageServerHandle, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	replicas, ok := ns.fileMap[p]
	if !ok {
		return nil, ErrNotAFile
	}

	handles := make([]storage_registry.StorageServerHandle, 0, len(replicas))
	for handle := range replicas {
		handles = append(handles, handle)
	}
	return handles, nil
}

func (ns *InMemoryNamespaceService) RemoveReplica(p dfspath.Path, handle storage_registry.StorageServerHandle) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	replicas, ok := ns.fileMap[p]
	if !ok {
		return
	}
	delete(replicas, handle)
	if len(replicas) == 0 {
		delete(ns.fileMap, p)
	}
}

func (ns *InMemoryNamespaceService) RemoveSubtree(p dfspath.Path) ([]storage_registry.StorageServerHandle, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if !ns.hasPathLocked(p) {
		return nil, ErrPathNotFound
	}

	hosts := make(map[storage_registry.StorageServerHandle]bool)
	for path, replicas := range ns.fileMap {
		if path.IsSubpathOf(p) {
			for handle := range replicas {
				hosts[handle] = true
			}
			delete(ns.fileMap, path)
		}
	}
	for path := range ns.directorySet {
		if path.IsSubpathOf(p) {
			delete(ns.directorySet, path)
		}
	}

	handles := make([]storage_registry.StorageServerHandle, 0, len(hosts))
	for handle := range hosts {
		handles = append(handles, handle)
	}

	ns.ls.Debug(log_service.LogEvent{
		Message:  "Removed namespace subtree",
		Metadata: map[string]any{"path": p.String(), "hosts": len(handles)},
	})
	return handles, nil
}

func (ns *InMemoryNamespaceService) MergeRegistration(paths []dfspath.Path, handle storage_registry.StorageServerHandle) []dfspath.Path {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	toDelete := []dfspath.Path{}
	for _, p := range paths {
		if p.IsRoot() {
			continue
		}
		if ns.hasPathLocked(p) {
			toDelete = append(toDelete, p)
			continue
		}

		ns.addFileLocked(p, handle)

		// Walk ancestors adding missing directories, stopping at the
		// first one already present.
		parent, err := p.Parent()
		for err == nil && !parent.IsRoot() {
			if ns.directorySet[parent] {
				break
			}
			ns.directorySet[parent] = true
			parent, err = parent.Parent()
		}
	}
	return toDelete
}

var _ NamespaceService = (*InMemoryNamespaceService)(nil)
