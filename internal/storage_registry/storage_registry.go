package storage_registry

// StorageServerHandle identifies one storage server by the addresses of
// its two interfaces: data (client byte access) and control (naming
// server commands). Two handles are the same server iff both addresses
// match.
type StorageServerHandle struct {
	DataAddress    string
	ControlAddress string
}

type StorageRegistry interface {
	Contains(handle StorageServerHandle) bool
	Add(handle StorageServerHandle) error
	// Random returns any registered handle.
	Random() (StorageServerHandle, error)
	// RandomExcluding returns any registered handle not present in the
	// exclusion set, or false if every handle is excluded.
	RandomExcluding(exclude map[StorageServerHandle]bool) (StorageServerHandle, bool)
	Servers() []StorageServerHandle
}
