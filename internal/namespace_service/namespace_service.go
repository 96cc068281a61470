package namespace_service

import (
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

// NamespaceService is the naming server's in-memory index. It tracks two
// collaborating structures: the set of directory paths (always containing
// the root) and the map from file path to the storage servers hosting a
// replica of it. A path is in at most one of the two; every ancestor of a
// known path is a known directory; no file has an empty replica set.
type NamespaceService interface {
	HasPath(p dfspath.Path) bool
	// IsDirectory reports whether p is a directory. It fails with
	// ErrPathNotFound when p is neither a directory nor a file.
	IsDirectory(p dfspath.Path) (bool, error)
	// ListChildren returns the de-duplicated child component names of dir.
	ListChildren(dir dfspath.Path) ([]string, error)
	// AddFile records handle as a replica of p, creating the entry if p is
	// new. Ancestor directories are not touched.
	AddFile(p dfspath.Path, handle storage_registry.StorageServerHandle)
	AddDirectory(p dfspath.Path)
	// FileHandles returns a snapshot of the replica set of p. It fails
	// with ErrNotAFile when p is not a file.
	FileHandles(p dfspath.Path) ([]storage_registry.StorageServerHandle, error)
	// RemoveReplica drops one replica of p. Removing the last replica
	// removes the file entry entirely.
	RemoveReplica(p dfspath.Path, handle storage_registry.StorageServerHandle)
	// RemoveSubtree removes every path rooted at p from both structures
	// and returns the distinct handles that hosted any removed file.
	RemoveSubtree(p dfspath.Path) ([]storage_registry.StorageServerHandle, error)
	// MergeRegistration reconciles a newly registered server's file list
	// against the namespace and returns the paths the server must delete
	// locally because they are already known.
	MergeRegistration(paths []dfspath.Path, handle storage_registry.StorageServerHandle) []dfspath.Path
}
