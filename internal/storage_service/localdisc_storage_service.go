package storage_service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
)

// copyChunkSize is the read size used when pulling a file from another
// storage server.
const copyChunkSize = 1024

type LocalDiscStorageService struct {
	baseDir string
	comm    communication.Communicator
	ls      log_service.LogService
}

func NewLocalDiscStorageService(baseDir string, comm communication.Communicator, ls log_service.LogService) *LocalDiscStorageService {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		panic(err)
	}
	return &LocalDiscStorageService{
		baseDir: baseDir,
		comm:    comm,
		ls:      ls,
	}
}

func (ss *LocalDiscStorageService) localPath(p dfspath.Path) string {
	return filepath.Join(ss.baseDir, filepath.FromSlash(strings.TrimPrefix(p.String(), "/")))
}

func (ss *LocalDiscStorageService) Size(p dfspath.Path) (int64, error) {
	info, err := os.Stat(ss.localPath(p))
	if err != nil || info.IsDir() {
		return 0, ErrFileNotFound
	}
	return info.Size(), nil
}

func (ss *LocalDiscStorageService) Read(p dfspath.Path, offset int64, length int) ([]byte, error) {
	size, err := ss.Size(p)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+int64(length) > size {
		return nil, ErrOutOfBounds
	}

	file, err := os.Open(ss.localPath(p))
	if err != nil {
		return nil, ErrFileNotFound
	}
	defer file.Close()

	data := make([]byte, length)
	if n, err := file.ReadAt(data, offset); n < length && err != nil {
		return nil, err
	}
	return data, nil
}

func (ss *LocalDiscStorageService) Write(p dfspath.Path, offset int64, data []byte) error {
	if offset < 0 {
		return ErrOutOfBounds
	}

	if _, err := os.Stat(ss.localPath(p)); err != nil {
		return ErrFileNotFound
	}

	file, err := os.OpenFile(ss.localPath(p), os.O_WRONLY, 0644)
	if err != nil {
		return ErrFileNotFound
	}
	defer file.Close()

	if _, err := file.WriteAt(data, offset); err != nil {
		return err
	}
	return nil
}

func (ss *LocalDiscStorageService) Create(p dfspath.Path) bool {
	if p.IsRoot() {
		return false
	}

	local := ss.localPath(p)
	if _, err := os.Stat(local); err == nil {
		return false
	}

	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return false
	}

	file, err := os.OpenFile(local, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	file.Close()
	return true
}

func (ss *LocalDiscStorageService) Delete(p dfspath.Path) bool {
	if p.IsRoot() {
		return false
	}

	local := ss.localPath(p)
	info, err := os.Stat(local)
	if err != nil {
		return false
	}

	if info.IsDir() {
		return os.RemoveAll(local) == nil
	}

	if err := os.Remove(local); err != nil {
		return false
	}
	ss.pruneEmptyParents(local)
	return true
}

// pruneEmptyParents removes directories left empty by a file delete,
// walking upward until the data root or a non-empty directory.
func (ss *LocalDiscStorageService) pruneEmptyParents(local string) {
	dir := filepath.Dir(local)
	for dir != ss.baseDir && strings.HasPrefix(dir, ss.baseDir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (ss *LocalDiscStorageService) Copy(ctx context.Context, p dfspath.Path, sourceAddress string) (bool, error) {
	sizeMsg := communication.Message{
		From:    ss.comm.Address(),
		Type:    communication.MessageTypeStorageSize,
		Payload: communication.StorageSizeRequest{Path: p.String()},
	}

	resp, err := ss.comm.Send(ctx, sourceAddress, sizeMsg)
	if err != nil {
		return false, err
	}
	if resp.Code != communication.CodeOK {
		return false, ErrFileNotFound
	}

	var size communication.StorageSizeResponse
	if err := json.Unmarshal(resp.Body, &size); err != nil {
		return false, ErrCopyFailed
	}

	local := ss.localPath(p)
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return false, ErrCopyFailed
	}

	// Replace any pre-existing local copy.
	file, err := os.Create(local)
	if err != nil {
		return false, ErrCopyFailed
	}

	for offset := int64(0); offset < size.Size; offset += copyChunkSize {
		length := copyChunkSize
		if remaining := size.Size - offset; remaining < copyChunkSize {
			length = int(remaining)
		}

		readMsg := communication.Message{
			From: ss.comm.Address(),
			Type: communication.MessageTypeStorageRead,
			Payload: communication.StorageReadRequest{
				Path:   p.String(),
				Offset: offset,
				Length: length,
			},
		}

		resp, err := ss.comm.Send(ctx, sourceAddress, readMsg)
		if err != nil || resp.Code != communication.CodeOK {
			file.Close()
			os.Remove(local)
			if err == nil {
				err = ErrCopyFailed
			}
			return false, err
		}

		if _, err := file.Write(resp.Body); err != nil {
			file.Close()
			os.Remove(local)
			return false, ErrCopyFailed
		}
	}

	if err := file.Close(); err != nil {
		os.Remove(local)
		return false, ErrCopyFailed
	}

	ss.ls.Info(log_service.LogEvent{
		Message:  "Copied file from peer",
		Metadata: map[string]any{"path": p.String(), "source": sourceAddress, "size": size.Size},
	})
	return true, nil
}

var _ StorageService = (*LocalDiscStorageService)(nil)
