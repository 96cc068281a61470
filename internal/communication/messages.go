package communication

// Message Type Constants
const (
	// Naming service operations (client facing)
	MessageTypeLock            = "lock"
	MessageTypeUnlock          = "unlock"
	MessageTypeIsDirectory     = "isdirectory"
	MessageTypeList            = "list"
	MessageTypeCreateFile      = "createfile"
	MessageTypeCreateDirectory = "createdirectory"
	MessageTypeDelete          = "delete"
	MessageTypeGetStorage      = "getstorage"

	// Naming registration operations (storage server facing)
	MessageTypeRegister = "register"

	// Storage data operations (per file byte access)
	MessageTypeStorageSize  = "storage_size"
	MessageTypeStorageRead  = "storage_read"
	MessageTypeStorageWrite = "storage_write"

	// Storage control operations (issued by the naming server)
	MessageTypeStorageCreate = "storage_create"
	MessageTypeStorageDelete = "storage_delete"
	MessageTypeStorageCopy   = "storage_copy"
)

// --- Naming service payloads ---

type LockRequest struct {
	Path      string `json:"path"`
	Exclusive bool   `json:"exclusive"`
}

type UnlockRequest struct {
	Path      string `json:"path"`
	Exclusive bool   `json:"exclusive"`
}

type IsDirectoryRequest struct {
	Path string `json:"path"`
}

type IsDirectoryResponse struct {
	IsDirectory bool `json:"isDirectory"`
}

type ListRequest struct {
	Path string `json:"path"`
}

type ListResponse struct {
	Children []string `json:"children"`
}

type CreateFileRequest struct {
	Path string `json:"path"`
}

type CreateFileResponse struct {
	Created bool `json:"created"`
}

type CreateDirectoryRequest struct {
	Path string `json:"path"`
}

type CreateDirectoryResponse struct {
	Created bool `json:"created"`
}

type DeleteRequest struct {
	Path string `json:"path"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type GetStorageRequest struct {
	Path string `json:"path"`
}

type GetStorageResponse struct {
	DataAddress string `json:"dataAddress"`
}

// --- Registration payloads ---

type RegisterRequest struct {
	DataAddress    string   `json:"dataAddress"`
	ControlAddress string   `json:"controlAddress"`
	Paths          []string `json:"paths"`
}

type RegisterResponse struct {
	ToDelete []string `json:"toDelete"`
}

// --- Storage data payloads ---

type StorageSizeRequest struct {
	Path string `json:"path"`
}

type StorageSizeResponse struct {
	Size int64 `json:"size"`
}

type StorageReadRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Length int    `json:"length"`
}

type StorageWriteRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Data   []byte `json:"data"`
}

// --- Storage control payloads ---

type StorageCreateRequest struct {
	Path string `json:"path"`
}

type StorageCreateResponse struct {
	Created bool `json:"created"`
}

type StorageDeleteRequest struct {
	Path string `json:"path"`
}

type StorageDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type StorageCopyRequest struct {
	Path          string `json:"path"`
	SourceAddress string `json:"sourceAddress"`
}

type StorageCopyResponse struct {
	Copied bool `json:"copied"`
}
