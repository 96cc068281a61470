package storage_service

import (
	"context"

	"github.com/tanmaygrover/namestore/internal/dfspath"
)

// StorageService is a storage server's local byte store. Paths are the
// namespace paths, mapped onto a directory tree under the server's data
// root. Size/Read/Write back the data interface; Create/Delete/Copy back
// the control interface driven by the naming server.
type StorageService interface {
	Size(p dfspath.Path) (int64, error)
	// Read returns length bytes starting at offset. The range must lie
	// entirely inside the file.
	Read(p dfspath.Path, offset int64, length int) ([]byte, error)
	// Write places data at offset, extending the file as needed. The
	// file must already exist.
	Write(p dfspath.Path, offset int64, data []byte) error
	// Create makes an empty file, along with any missing parent
	// directories. It returns false for the root or an existing path.
	Create(p dfspath.Path) bool
	// Delete removes a file or directory tree. Deleting a file prunes
	// ancestor directories left empty. It returns false for the root or
	// a missing path.
	Delete(p dfspath.Path) bool
	// Copy fetches the file from the data interface of another storage
	// server and replaces any local copy.
	Copy(ctx context.Context, p dfspath.Path, sourceAddress string) (bool, error)
}
