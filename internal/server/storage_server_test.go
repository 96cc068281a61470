package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/storage_service"
)

func mustPath(t *testing.T, s string) dfspath.Path {
	t.Helper()
	p, err := dfspath.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return p
}

func newTestStorageServer(t *testing.T, registerResponder func(to string, msg communication.Message) (*communication.Response, error)) (*StorageServer, string, *fakeCommunicator) {
	t.Helper()
	ls := log_service.NewConsoleLogService("test", "ERROR")
	baseDir := t.TempDir()

	dataComm := &fakeCommunicator{addr: "storage:7000"}
	controlComm := &fakeCommunicator{addr: "storage:7001", respond: registerResponder}

	ss := storage_service.NewLocalDiscStorageService(baseDir, controlComm, ls)
	srv := NewStorageServer(dataComm, controlComm, ss, "naming:6001", baseDir, ls)
	return srv, baseDir, controlComm
}

func registerOK(t *testing.T, toDelete []string) func(to string, msg communication.Message) (*communication.Response, error) {
	t.Helper()
	return func(to string, msg communication.Message) (*communication.Response, error) {
		body, err := json.Marshal(communication.RegisterResponse{ToDelete: toDelete})
		if err != nil {
			t.Fatal(err)
		}
		return &communication.Response{Code: communication.CodeOK, Body: body}, nil
	}
}

// Start advertises the local file tree and prunes the paths the naming
// server reports as duplicates.
func TestStorageServerStart(t *testing.T) {
	srv, baseDir, controlComm := newTestStorageServer(t, registerOK(t, []string{"/stale.txt"}))

	for _, f := range []string{"keep.txt", "stale.txt"} {
		if err := os.WriteFile(filepath.Join(baseDir, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(controlComm.sent) != 1 || controlComm.sentTo[0] != "naming:6001" {
		t.Fatalf("registration sent to %v, want naming:6001", controlComm.sentTo)
	}

	request, ok := controlComm.sent[0].Payload.(communication.RegisterRequest)
	if !ok {
		t.Fatalf("payload type = %T, want RegisterRequest", controlComm.sent[0].Payload)
	}
	if request.DataAddress != "storage:7000" || request.ControlAddress != "storage:7001" {
		t.Errorf("advertised addresses = %s, %s", request.DataAddress, request.ControlAddress)
	}
	if len(request.Paths) != 2 {
		t.Errorf("advertised paths = %v, want both local files", request.Paths)
	}

	if _, err := os.Stat(filepath.Join(baseDir, "stale.txt")); !os.IsNotExist(err) {
		t.Error("stale file survived registration pruning")
	}
	if _, err := os.Stat(filepath.Join(baseDir, "keep.txt")); err != nil {
		t.Error("kept file was pruned")
	}
}

func TestStorageServerStartRejected(t *testing.T) {
	srv, _, _ := newTestStorageServer(t, func(to string, msg communication.Message) (*communication.Response, error) {
		return &communication.Response{Code: communication.CodeConflict, Body: []byte("duplicate")}, nil
	})

	if err := srv.Start(); err != ErrRegistrationRejected {
		t.Errorf("Start() error = %v, want ErrRegistrationRejected", err)
	}
}

func TestDataHandlers(t *testing.T) {
	srv, baseDir, _ := newTestStorageServer(t, registerOK(t, nil))
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(baseDir, "f.txt"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	resp, err := srv.dataHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageSize,
		Payload: communication.StorageSizeRequest{Path: "/f.txt"},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("size handle() = %s, %v", resp.Code, err)
	}
	var size communication.StorageSizeResponse
	if err := json.Unmarshal(resp.Body, &size); err != nil || size.Size != 7 {
		t.Errorf("size = %d, %v, want 7", size.Size, err)
	}

	resp, err = srv.dataHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageRead,
		Payload: communication.StorageReadRequest{Path: "/f.txt", Offset: 0, Length: 7},
	})
	if err != nil || resp.Code != communication.CodeOK || string(resp.Body) != "payload" {
		t.Errorf("read handle() = %s, %q, %v", resp.Code, resp.Body, err)
	}

	resp, err = srv.dataHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageRead,
		Payload: communication.StorageReadRequest{Path: "/f.txt", Offset: 4, Length: 10},
	})
	if err != nil || resp.Code != communication.CodeOutOfBounds {
		t.Errorf("out-of-range read handle() = %s, %v, want OUT_OF_BOUNDS", resp.Code, err)
	}

	resp, err = srv.dataHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageSize,
		Payload: communication.StorageSizeRequest{Path: "/missing"},
	})
	if err != nil || resp.Code != communication.CodeNotFound {
		t.Errorf("size of missing file = %s, %v, want NOT_FOUND", resp.Code, err)
	}

	resp, err = srv.dataHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageWrite,
		Payload: communication.StorageWriteRequest{Path: "/f.txt", Offset: 0, Data: []byte("PAYLOAD")},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("write handle() = %s, %v", resp.Code, err)
	}
	data, err := os.ReadFile(filepath.Join(baseDir, "f.txt"))
	if err != nil || string(data) != "PAYLOAD" {
		t.Errorf("file after write = %q, %v", data, err)
	}
}

func TestControlHandlers(t *testing.T) {
	srv, baseDir, _ := newTestStorageServer(t, registerOK(t, nil))
	ctx := context.Background()

	resp, err := srv.controlHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageCreate,
		Payload: communication.StorageCreateRequest{Path: "/new/file.txt"},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("create handle() = %s, %v", resp.Code, err)
	}
	var created communication.StorageCreateResponse
	if err := json.Unmarshal(resp.Body, &created); err != nil || !created.Created {
		t.Errorf("created = %v, %v, want true", created.Created, err)
	}

	// A second create reports false, which the naming server treats as
	// the file already existing storage-side.
	resp, err = srv.controlHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageCreate,
		Payload: communication.StorageCreateRequest{Path: "/new/file.txt"},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("second create handle() = %s, %v", resp.Code, err)
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil || created.Created {
		t.Errorf("second created = %v, want false", created.Created)
	}

	resp, err = srv.controlHandlers.handle(ctx, communication.Message{
		Type:    communication.MessageTypeStorageDelete,
		Payload: communication.StorageDeleteRequest{Path: "/new/file.txt"},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("delete handle() = %s, %v", resp.Code, err)
	}
	var deleted communication.StorageDeleteResponse
	if err := json.Unmarshal(resp.Body, &deleted); err != nil || !deleted.Deleted {
		t.Errorf("deleted = %v, %v, want true", deleted.Deleted, err)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "new")); !os.IsNotExist(err) {
		t.Error("pruned directory survived")
	}
}
