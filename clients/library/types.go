package namelib

import (
	"github.com/tanmaygrover/namestore/internal/communication"
)

// NamingClient is a stub for the naming server's Service and
// Registration interfaces.
type NamingClient struct {
	ServiceAddr      string
	RegistrationAddr string
	Comm             communication.Communicator
	From             string
}

// StorageClient is a stub for storage-server data interfaces. The target
// address comes from the naming server's GetStorage answer, so one
// client value serves any number of storage servers.
type StorageClient struct {
	Comm communication.Communicator
	From string
}
