package naming_service

import (
	"context"

	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

// NamingService is the externally callable surface of the naming server:
// the client-facing filesystem operations plus the storage-facing
// registration protocol. It glues the namespace index, the storage
// registry, the lock manager and the replication coordinator together.
type NamingService interface {
	// Lock acquires the hierarchical lock chain for p and runs the
	// replication hooks for file paths.
	Lock(ctx context.Context, p dfspath.Path, exclusive bool) error
	Unlock(p dfspath.Path, exclusive bool) error

	IsDirectory(p dfspath.Path) (bool, error)
	List(dir dfspath.Path) ([]string, error)
	// CreateFile creates p on a randomly chosen storage server and
	// records it. It returns false when p already exists.
	CreateFile(ctx context.Context, p dfspath.Path) (bool, error)
	CreateDirectory(p dfspath.Path) (bool, error)
	// Delete removes the subtree rooted at p from the namespace and fans
	// out storage-side deletes. The namespace mutation always completes;
	// the first transport failure is reported afterwards.
	Delete(ctx context.Context, p dfspath.Path) (bool, error)
	GetStorage(p dfspath.Path) (storage_registry.StorageServerHandle, error)

	// Register admits a new storage server and reconciles its advertised
	// file list, returning the paths it must delete locally.
	Register(data string, control string, paths []dfspath.Path) ([]dfspath.Path, error)
}
