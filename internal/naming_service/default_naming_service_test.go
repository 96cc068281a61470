package naming_service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/lock_service"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/replication_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

var (
	h1 = storage_registry.StorageServerHandle{DataAddress: "s1:7000", ControlAddress: "s1:7001"}
	h2 = storage_registry.StorageServerHandle{DataAddress: "s2:7000", ControlAddress: "s2:7001"}
)

type fakeCommunicator struct {
	mu      sync.Mutex
	sentTo  []string
	sent    []communication.Message
	respond func(to string, msg communication.Message) (*communication.Response, error)
}

func (f *fakeCommunicator) Start(handler communication.MessageHandler) error { return nil }
func (f *fakeCommunicator) Stop() error                                      { return nil }
func (f *fakeCommunicator) Address() string                                  { return "naming:6000" }

func (f *fakeCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	f.mu.Lock()
	f.sentTo = append(f.sentTo, to)
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(to, msg)
	}
	return &communication.Response{Code: communication.CodeOK}, nil
}

func (f *fakeCommunicator) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func path(t *testing.T, s string) dfspath.Path {
	t.Helper()
	p, err := dfspath.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return p
}

func createOKResponder(t *testing.T, created bool) func(string, communication.Message) (*communication.Response, error) {
	t.Helper()
	return func(to string, msg communication.Message) (*communication.Response, error) {
		var body []byte
		var err error
		switch msg.Payload.(type) {
		case communication.StorageCreateRequest:
			body, err = json.Marshal(communication.StorageCreateResponse{Created: created})
		case communication.StorageCopyRequest:
			body, err = json.Marshal(communication.StorageCopyResponse{Copied: true})
		case communication.StorageDeleteRequest:
			body, err = json.Marshal(communication.StorageDeleteResponse{Deleted: true})
		}
		if err != nil {
			t.Fatal(err)
		}
		return &communication.Response{Code: communication.CodeOK, Body: body}, nil
	}
}

func newTestService(t *testing.T, comm communication.Communicator, threshold int) (*DefaultNamingService, *namespace_service.InMemoryNamespaceService, *storage_registry.InMemoryStorageRegistry) {
	t.Helper()
	ls := log_service.NewConsoleLogService("test", "ERROR")
	ns := namespace_service.NewInMemoryNamespaceService(ls)
	registry := storage_registry.NewInMemoryStorageRegistry(ls)
	locks := lock_service.NewHierarchicalLockService(ns, ls)
	repl := replication_service.NewDefaultReplicationService(ns, registry, comm, ls, threshold)
	return NewDefaultNamingService(ns, registry, locks, repl, comm, ls), ns, registry
}

func TestCreateDirectory(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeCommunicator{}, 0)

	created, err := svc.CreateDirectory(path(t, "/x"))
	if err != nil || !created {
		t.Fatalf("first CreateDirectory() = %v, %v, want true", created, err)
	}

	created, err = svc.CreateDirectory(path(t, "/x"))
	if err != nil || created {
		t.Fatalf("second CreateDirectory() = %v, %v, want false", created, err)
	}

	if _, err := svc.CreateDirectory(path(t, "/missing/parent")); !errors.Is(err, namespace_service.ErrPathNotFound) {
		t.Errorf("CreateDirectory(missing parent) error = %v, want ErrPathNotFound", err)
	}
}

func TestCreateFile(t *testing.T) {
	ctx := context.Background()

	t.Run("parent missing", func(t *testing.T) {
		svc, _, _ := newTestService(t, &fakeCommunicator{}, 0)
		if _, err := svc.CreateFile(ctx, path(t, "/x/y")); !errors.Is(err, namespace_service.ErrPathNotFound) {
			t.Errorf("CreateFile() error = %v, want ErrPathNotFound", err)
		}
	})

	t.Run("no storage servers", func(t *testing.T) {
		svc, ns, _ := newTestService(t, &fakeCommunicator{}, 0)
		ns.AddDirectory(path(t, "/x"))
		if _, err := svc.CreateFile(ctx, path(t, "/x/y")); !errors.Is(err, ErrNoStorageAvailable) {
			t.Errorf("CreateFile() error = %v, want ErrNoStorageAvailable", err)
		}
	})

	t.Run("success records handle", func(t *testing.T) {
		comm := &fakeCommunicator{respond: createOKResponder(t, true)}
		svc, ns, registry := newTestService(t, comm, 0)
		ns.AddDirectory(path(t, "/x"))
		if err := registry.Add(h1); err != nil {
			t.Fatal(err)
		}

		created, err := svc.CreateFile(ctx, path(t, "/x/y"))
		if err != nil || !created {
			t.Fatalf("CreateFile() = %v, %v, want true", created, err)
		}

		handles, err := ns.FileHandles(path(t, "/x/y"))
		if err != nil || len(handles) != 1 || handles[0] != h1 {
			t.Errorf("FileHandles() = %v, %v, want [h1]", handles, err)
		}

		if comm.sentCount() != 1 || comm.sentTo[0] != h1.ControlAddress {
			t.Errorf("create sent to %v, want control address of h1", comm.sentTo)
		}
	})

	t.Run("storage reports existing file", func(t *testing.T) {
		comm := &fakeCommunicator{respond: createOKResponder(t, false)}
		svc, ns, registry := newTestService(t, comm, 0)
		ns.AddDirectory(path(t, "/x"))
		if err := registry.Add(h1); err != nil {
			t.Fatal(err)
		}

		// The storage server already had the file; the call still
		// succeeds but the namespace records nothing.
		created, err := svc.CreateFile(ctx, path(t, "/x/y"))
		if err != nil || !created {
			t.Fatalf("CreateFile() = %v, %v, want true", created, err)
		}
		if ns.HasPath(path(t, "/x/y")) {
			t.Error("namespace recorded a file the storage server refused to create")
		}
	})

	t.Run("existing path returns false", func(t *testing.T) {
		comm := &fakeCommunicator{respond: createOKResponder(t, true)}
		svc, ns, registry := newTestService(t, comm, 0)
		ns.AddDirectory(path(t, "/x"))
		ns.AddFile(path(t, "/x/y"), h1)
		if err := registry.Add(h1); err != nil {
			t.Fatal(err)
		}

		created, err := svc.CreateFile(ctx, path(t, "/x/y"))
		if err != nil || created {
			t.Errorf("CreateFile(existing) = %v, %v, want false", created, err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("root", func(t *testing.T) {
		svc, _, _ := newTestService(t, &fakeCommunicator{}, 0)
		deleted, err := svc.Delete(ctx, dfspath.Root())
		if err != nil || deleted {
			t.Errorf("Delete(root) = %v, %v, want false", deleted, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		svc, _, _ := newTestService(t, &fakeCommunicator{}, 0)
		if _, err := svc.Delete(ctx, path(t, "/nope")); !errors.Is(err, namespace_service.ErrPathNotFound) {
			t.Errorf("Delete(unknown) error = %v, want ErrPathNotFound", err)
		}
	})

	t.Run("subtree fan-out", func(t *testing.T) {
		comm := &fakeCommunicator{}
		svc, ns, _ := newTestService(t, comm, 0)
		ns.AddDirectory(path(t, "/a"))
		ns.AddFile(path(t, "/a/f1"), h1)
		ns.AddFile(path(t, "/a/f2"), h2)

		deleted, err := svc.Delete(ctx, path(t, "/a"))
		if err != nil || !deleted {
			t.Fatalf("Delete() = %v, %v, want true", deleted, err)
		}

		if ns.HasPath(path(t, "/a")) || ns.HasPath(path(t, "/a/f1")) {
			t.Error("subtree still present after delete")
		}
		if comm.sentCount() != 2 {
			t.Errorf("sent %d storage deletes, want 2", comm.sentCount())
		}
	})

	t.Run("transport failure surfaces after mutation", func(t *testing.T) {
		comm := &fakeCommunicator{
			respond: func(to string, msg communication.Message) (*communication.Response, error) {
				return nil, communication.ErrMessageSendFailed
			},
		}
		svc, ns, _ := newTestService(t, comm, 0)
		ns.AddFile(path(t, "/f"), h1)

		deleted, err := svc.Delete(ctx, path(t, "/f"))
		if !deleted {
			t.Error("Delete() = false, want true despite transport failure")
		}
		if !errors.Is(err, communication.ErrMessageSendFailed) {
			t.Errorf("Delete() error = %v, want ErrMessageSendFailed", err)
		}
		if ns.HasPath(path(t, "/f")) {
			t.Error("namespace mutation did not complete")
		}
	})
}

func TestGetStorage(t *testing.T) {
	svc, ns, _ := newTestService(t, &fakeCommunicator{}, 0)
	ns.AddDirectory(path(t, "/dir"))
	ns.AddFile(path(t, "/f"), h1)

	handle, err := svc.GetStorage(path(t, "/f"))
	if err != nil || handle != h1 {
		t.Errorf("GetStorage() = %+v, %v, want h1", handle, err)
	}

	if _, err := svc.GetStorage(path(t, "/dir")); !errors.Is(err, namespace_service.ErrNotAFile) {
		t.Errorf("GetStorage(directory) error = %v, want ErrNotAFile", err)
	}
	if _, err := svc.GetStorage(path(t, "/nope")); !errors.Is(err, namespace_service.ErrNotAFile) {
		t.Errorf("GetStorage(unknown) error = %v, want ErrNotAFile", err)
	}
}

func TestRegister(t *testing.T) {
	svc, ns, _ := newTestService(t, &fakeCommunicator{}, 0)

	toDelete, err := svc.Register(h1.DataAddress, h1.ControlAddress, []dfspath.Path{
		path(t, "/a"),
		path(t, "/a/b"),
	})
	if err != nil || len(toDelete) != 0 {
		t.Fatalf("Register() = %v, %v, want no deletions", toDelete, err)
	}

	if _, err := svc.Register(h1.DataAddress, h1.ControlAddress, nil); !errors.Is(err, storage_registry.ErrServerAlreadyRegistered) {
		t.Errorf("duplicate Register() error = %v, want ErrServerAlreadyRegistered", err)
	}

	if _, err := svc.Register("", h2.ControlAddress, nil); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("Register with missing data address error = %v, want ErrInvalidRegistration", err)
	}

	toDelete, err = svc.Register(h2.DataAddress, h2.ControlAddress, []dfspath.Path{
		path(t, "/a/b"),
		path(t, "/d"),
	})
	if err != nil {
		t.Fatalf("second Register() error = %v", err)
	}
	if len(toDelete) != 1 || toDelete[0].String() != "/a/b" {
		t.Errorf("second Register() toDelete = %v, want [/a/b]", toDelete)
	}

	handles, err := ns.FileHandles(path(t, "/d"))
	if err != nil || len(handles) != 1 || handles[0] != h2 {
		t.Errorf("FileHandles(/d) = %v, %v, want [h2]", handles, err)
	}
}

// Twenty shared lock/unlock cycles on a file replicated on one of two
// registered servers order a copy to the second server.
func TestLockReplicationHook(t *testing.T) {
	comm := &fakeCommunicator{respond: createOKResponder(t, true)}
	svc, ns, registry := newTestService(t, comm, 20)

	file := path(t, "/a/b/c")
	ns.AddDirectory(path(t, "/a"))
	ns.AddDirectory(path(t, "/a/b"))
	ns.AddFile(file, h1)
	for _, h := range []storage_registry.StorageServerHandle{h1, h2} {
		if err := registry.Add(h); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if err := svc.Lock(ctx, file, false); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if err := svc.Unlock(file, false); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
	}

	if comm.sentCount() != 1 {
		t.Fatalf("sent %d messages over 20 cycles, want exactly 1 copy", comm.sentCount())
	}
	if comm.sentTo[0] != h2.ControlAddress {
		t.Errorf("copy ordered to %s, want %s", comm.sentTo[0], h2.ControlAddress)
	}

	handles, err := ns.FileHandles(file)
	if err != nil || len(handles) != 2 {
		t.Errorf("FileHandles() = %v, %v, want 2 replicas", handles, err)
	}
}

// An exclusive lock on a multi-replica file leaves one replica behind.
func TestLockExclusiveInvalidates(t *testing.T) {
	comm := &fakeCommunicator{}
	svc, ns, _ := newTestService(t, comm, 0)

	file := path(t, "/f")
	ns.AddFile(file, h1)
	ns.AddFile(file, h2)

	if err := svc.Lock(context.Background(), file, true); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	handles, err := ns.FileHandles(file)
	if err != nil || len(handles) != 1 {
		t.Errorf("FileHandles() while write lock held = %v, %v, want 1", handles, err)
	}

	if err := svc.Unlock(file, true); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
}

func TestLockUnknownPath(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeCommunicator{}, 0)
	if err := svc.Lock(context.Background(), path(t, "/nope"), false); !errors.Is(err, lock_service.ErrPathNotFound) {
		t.Errorf("Lock(unknown) error = %v, want ErrPathNotFound", err)
	}
	if err := svc.Unlock(path(t, "/nope"), false); !errors.Is(err, lock_service.ErrLockNotHeld) {
		t.Errorf("Unlock(never locked) error = %v, want ErrLockNotHeld", err)
	}
}
