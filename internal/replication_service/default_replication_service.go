package replication_service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

type DefaultReplicationService struct {
	ns       namespace_service.NamespaceService
	registry storage_registry.StorageRegistry
	comm     communication.Communicator
	ls       log_service.LogService

	mu         sync.Mutex
	readCounts map[dfspath.Path]int
	threshold  int
}

func NewDefaultReplicationService(ns namespace_service.NamespaceService, registry storage_registry.StorageRegistry, comm communication.Communicator, ls log_service.LogService, threshold int) *DefaultReplicationService {
	if threshold <= 0 {
		threshold = DefaultReadThreshold
	}
	return &DefaultReplicationService{
		ns:         ns,
		registry:   registry,
		comm:       comm,
		ls:         ls,
		readCounts: make(map[dfspath.Path]int),
		threshold:  threshold,
	}
}

// HandleExclusiveAcquire shrinks the replica set of p to a single handle.
// Every other replica receives a control-plane delete; replicas whose
// delete fails are dropped from the namespace anyway, since the file is
// known to survive on the retained handle.
func (rs *DefaultReplicationService) HandleExclusiveAcquire(ctx context.Context, p dfspath.Path) {
	handles, err := rs.ns.FileHandles(p)
	if err != nil || len(handles) <= 1 {
		return
	}

	retained := handles[0]
	for _, handle := range handles[1:] {
		msg := communication.Message{
			From:    rs.comm.Address(),
			Type:    communication.MessageTypeStorageDelete,
			Payload: communication.StorageDeleteRequest{Path: p.String()},
		}

		if _, err := rs.comm.Send(ctx, handle.ControlAddress, msg); err != nil {
			rs.ls.Warn(log_service.LogEvent{
				Message:  "Replica invalidation delete failed",
				Metadata: map[string]any{"path": p.String(), "control": handle.ControlAddress, "error": err.Error()},
			})
		}
		rs.ns.RemoveReplica(p, handle)
	}

	rs.ls.Info(log_service.LogEvent{
		Message:  "Invalidated replicas for write",
		Metadata: map[string]any{"path": p.String(), "retained": retained.DataAddress, "dropped": len(handles) - 1},
	})
}

// HandleSharedAcquire counts a read of p. On the threshold hit the
// counter resets and one more storage server is asked to copy the file
// from an existing replica.
func (rs *DefaultReplicationService) HandleSharedAcquire(ctx context.Context, p dfspath.Path) {
	rs.mu.Lock()
	rs.readCounts[p]++
	hit := rs.readCounts[p] >= rs.threshold
	if hit {
		rs.readCounts[p] = 0
	}
	rs.mu.Unlock()

	if !hit {
		return
	}

	handles, err := rs.ns.FileHandles(p)
	if err != nil || len(handles) == 0 {
		return
	}

	exclude := make(map[storage_registry.StorageServerHandle]bool, len(handles))
	for _, handle := range handles {
		exclude[handle] = true
	}

	target, ok := rs.registry.RandomExcluding(exclude)
	if !ok {
		return
	}

	src := handles[0]
	msg := communication.Message{
		From: rs.comm.Address(),
		Type: communication.MessageTypeStorageCopy,
		Payload: communication.StorageCopyRequest{
			Path:          p.String(),
			SourceAddress: src.DataAddress,
		},
	}

	resp, err := rs.comm.Send(ctx, target.ControlAddress, msg)
	if err != nil || resp.Code != communication.CodeOK {
		rs.ls.Warn(log_service.LogEvent{
			Message:  "Replication copy failed",
			Metadata: map[string]any{"path": p.String(), "target": target.ControlAddress},
		})
		return
	}

	var copied communication.StorageCopyResponse
	if err := json.Unmarshal(resp.Body, &copied); err != nil || !copied.Copied {
		return
	}

	rs.ns.AddFile(p, target)
	rs.ls.Info(log_service.LogEvent{
		Message:  "Replicated file to new storage server",
		Metadata: map[string]any{"path": p.String(), "target": target.DataAddress, "source": src.DataAddress},
	})
}

var _ ReplicationService = (*DefaultReplicationService)(nil)
