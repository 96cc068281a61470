package replication_service

import (
	"context"

	"github.com/tanmaygrover/namestore/internal/dfspath"
)

// DefaultReadThreshold is the number of shared acquires of a file that
// triggers replication to one more storage server.
const DefaultReadThreshold = 20

// ReplicationService reacts to lock acquisitions on file paths: write
// intent shrinks the replica set to a single copy, and sustained read
// traffic grows it. Both directions are best-effort; transport failures
// never propagate to the acquiring caller.
type ReplicationService interface {
	HandleExclusiveAcquire(ctx context.Context, p dfspath.Path)
	HandleSharedAcquire(ctx context.Context, p dfspath.Path)
}
