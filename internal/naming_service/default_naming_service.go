package naming_service

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/exp/rand"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/lock_service"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/replication_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

type DefaultNamingService struct {
	ns       namespace_service.NamespaceService
	registry storage_registry.StorageRegistry
	locks    lock_service.LockService
	repl     replication_service.ReplicationService
	comm     communication.Communicator
	ls       log_service.LogService
	rng      *rand.Rand
}

func NewDefaultNamingService(ns namespace_service.NamespaceService, registry storage_registry.StorageRegistry, locks lock_service.LockService, repl replication_service.ReplicationService, comm communication.Communicator, ls log_service.LogService) *DefaultNamingService {
	return &DefaultNamingService{
		ns:       ns,
		registry: registry,
		locks:    locks,
		repl:     repl,
		comm:     comm,
		ls:       ls,
		rng:      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
}

func (s *DefaultNamingService) Lock(ctx context.Context, p dfspath.Path, exclusive bool) error {
	if err := s.locks.Acquire(p, exclusive); err != nil {
		return err
	}

	// Replication reacts to file locks only; directories carry no bytes.
	isDir, err := s.ns.IsDirectory(p)
	if err != nil || isDir {
		return nil
	}

	if exclusive {
		s.repl.HandleExclusiveAcquire(ctx, p)
	} else {
		s.repl.HandleSharedAcquire(ctx, p)
	}
	return nil
}

func (s *DefaultNamingService) Unlock(p dfspath.Path, exclusive bool) error {
	return s.locks.Release(p, exclusive)
}

func (s *DefaultNamingService) IsDirectory(p dfspath.Path) (bool, error) {
	return s.ns.IsDirectory(p)
}

func (s *DefaultNamingService) List(dir dfspath.Path) ([]string, error) {
	return s.ns.ListChildren(dir)
}

func (s *DefaultNamingService) CreateFile(ctx context.Context, p dfspath.Path) (bool, error) {
	if s.ns.HasPath(p) {
		return false, nil
	}

	if err := s.checkParentDirectory(p); err != nil {
		return false, err
	}

	handle, err := s.registry.Random()
	if err != nil {
		return false, ErrNoStorageAvailable
	}

	msg := communication.Message{
		From:    s.comm.Address(),
		Type:    communication.MessageTypeStorageCreate,
		Payload: communication.StorageCreateRequest{Path: p.String()},
	}

	resp, err := s.comm.Send(ctx, handle.ControlAddress, msg)
	if err != nil {
		return false, err
	}

	var created communication.StorageCreateResponse
	if resp.Code == communication.CodeOK {
		_ = json.Unmarshal(resp.Body, &created)
	}

	// A storage server reporting the file already present still counts as
	// success for the caller; the namespace simply does not record the
	// stale copy.
	if !created.Created {
		return true, nil
	}

	s.ns.AddFile(p, handle)
	s.ls.Info(log_service.LogEvent{
		Message:  "Created file",
		Metadata: map[string]any{"path": p.String(), "storage": handle.DataAddress},
	})
	return true, nil
}

func (s *DefaultNamingService) CreateDirectory(p dfspath.Path) (bool, error) {
	if s.ns.HasPath(p) {
		return false, nil
	}

	if err := s.checkParentDirectory(p); err != nil {
		return false, err
	}

	s.ns.AddDirectory(p)
	return true, nil
}

func (s *DefaultNamingService) Delete(ctx context.Context, p dfspath.Path) (bool, error) {
	if p.IsRoot() {
		return false, nil
	}

	hosts, err := s.ns.RemoveSubtree(p)
	if err != nil {
		return false, err
	}

	// The namespace mutation is already complete; storage-side deletes
	// are fanned out afterwards and the first failure is surfaced.
	var firstErr error
	for _, handle := range hosts {
		msg := communication.Message{
			From:    s.comm.Address(),
			Type:    communication.MessageTypeStorageDelete,
			Payload: communication.StorageDeleteRequest{Path: p.String()},
		}
		if _, err := s.comm.Send(ctx, handle.ControlAddress, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Deleted path",
		Metadata: map[string]any{"path": p.String(), "hosts": len(hosts)},
	})
	return true, firstErr
}

func (s *DefaultNamingService) GetStorage(p dfspath.Path) (storage_registry.StorageServerHandle, error) {
	handles, err := s.ns.FileHandles(p)
	if err != nil {
		return storage_registry.StorageServerHandle{}, err
	}
	return handles[s.rng.Intn(len(handles))], nil
}

func (s *DefaultNamingService) Register(data string, control string, paths []dfspath.Path) ([]dfspath.Path, error) {
	if data == "" || control == "" {
		return nil, ErrInvalidRegistration
	}

	handle := storage_registry.StorageServerHandle{
		DataAddress:    data,
		ControlAddress: control,
	}

	if err := s.registry.Add(handle); err != nil {
		return nil, err
	}

	toDelete := s.ns.MergeRegistration(paths, handle)

	s.ls.Info(log_service.LogEvent{
		Message:  "Registered storage server",
		Metadata: map[string]any{"data": data, "control": control, "advertised": len(paths), "toDelete": len(toDelete)},
	})
	return toDelete, nil
}

// checkParentDirectory validates that the parent of p exists and is a
// directory. Both failures surface as the namespace not-found error, the
// same way the lookup of a missing parent would.
func (s *DefaultNamingService) checkParentDirectory(p dfspath.Path) error {
	parent, err := p.Parent()
	if err != nil {
		return namespace_service.ErrPathNotFound
	}

	isDir, err := s.ns.IsDirectory(parent)
	if err != nil {
		return err
	}
	if !isDir {
		return namespace_service.ErrPathNotFound
	}
	return nil
}

var _ NamingService = (*DefaultNamingService)(nil)
