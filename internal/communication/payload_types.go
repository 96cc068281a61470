package communication

import "reflect"

// DefaultPayloadTypes maps every message type to the request struct the
// receiving side should decode the JSON payload into. Both communicators
// seed their registries from this table.
func DefaultPayloadTypes() map[string]reflect.Type {
	return map[string]reflect.Type{
		MessageTypeLock:            reflect.TypeOf((*LockRequest)(nil)).Elem(),
		MessageTypeUnlock:          reflect.TypeOf((*UnlockRequest)(nil)).Elem(),
		MessageTypeIsDirectory:     reflect.TypeOf((*IsDirectoryRequest)(nil)).Elem(),
		MessageTypeList:            reflect.TypeOf((*ListRequest)(nil)).Elem(),
		MessageTypeCreateFile:      reflect.TypeOf((*CreateFileRequest)(nil)).Elem(),
		MessageTypeCreateDirectory: reflect.TypeOf((*CreateDirectoryRequest)(nil)).Elem(),
		MessageTypeDelete:          reflect.TypeOf((*DeleteRequest)(nil)).Elem(),
		MessageTypeGetStorage:      reflect.TypeOf((*GetStorageRequest)(nil)).Elem(),
		MessageTypeRegister:        reflect.TypeOf((*RegisterRequest)(nil)).Elem(),
		MessageTypeStorageSize:     reflect.TypeOf((*StorageSizeRequest)(nil)).Elem(),
		MessageTypeStorageRead:     reflect.TypeOf((*StorageReadRequest)(nil)).Elem(),
		MessageTypeStorageWrite:    reflect.TypeOf((*StorageWriteRequest)(nil)).Elem(),
		MessageTypeStorageCreate:   reflect.TypeOf((*StorageCreateRequest)(nil)).Elem(),
		MessageTypeStorageDelete:   reflect.TypeOf((*StorageDeleteRequest)(nil)).Elem(),
		MessageTypeStorageCopy:     reflect.TypeOf((*StorageCopyRequest)(nil)).Elem(),
	}
}
