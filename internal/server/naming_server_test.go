package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/lock_service"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/naming_service"
	"github.com/tanmaygrover/namestore/internal/replication_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

type fakeCommunicator struct {
	addr    string
	mu      sync.Mutex
	sent    []communication.Message
	sentTo  []string
	respond func(to string, msg communication.Message) (*communication.Response, error)
	handler communication.MessageHandler
}

func (f *fakeCommunicator) Start(handler communication.MessageHandler) error {
	f.handler = handler
	return nil
}
func (f *fakeCommunicator) Stop() error     { return nil }
func (f *fakeCommunicator) Address() string { return f.addr }

func (f *fakeCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.sentTo = append(f.sentTo, to)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(to, msg)
	}
	return &communication.Response{Code: communication.CodeOK}, nil
}

func newTestNamingServer(t *testing.T) (*NamingServer, *namespace_service.InMemoryNamespaceService, *fakeCommunicator) {
	t.Helper()
	ls := log_service.NewConsoleLogService("test", "ERROR")
	serviceComm := &fakeCommunicator{addr: "naming:6000"}
	registrationComm := &fakeCommunicator{addr: "naming:6001"}

	ns := namespace_service.NewInMemoryNamespaceService(ls)
	registry := storage_registry.NewInMemoryStorageRegistry(ls)
	locks := lock_service.NewHierarchicalLockService(ns, ls)
	repl := replication_service.NewDefaultReplicationService(ns, registry, serviceComm, ls, 0)
	svc := naming_service.NewDefaultNamingService(ns, registry, locks, repl, serviceComm, ls)

	return NewNamingServer(serviceComm, registrationComm, svc, ls), ns, serviceComm
}

func TestServiceHandlerDispatch(t *testing.T) {
	srv, ns, _ := newTestNamingServer(t)
	ctx := context.Background()

	ns.AddDirectory(mustPath(t, "/dir"))

	tests := []struct {
		name     string
		msg      communication.Message
		wantCode communication.StoreCode
	}{
		{
			name: "isdirectory on directory",
			msg: communication.Message{
				Type:    communication.MessageTypeIsDirectory,
				Payload: communication.IsDirectoryRequest{Path: "/dir"},
			},
			wantCode: communication.CodeOK,
		},
		{
			name: "isdirectory on unknown path",
			msg: communication.Message{
				Type:    communication.MessageTypeIsDirectory,
				Payload: communication.IsDirectoryRequest{Path: "/nope"},
			},
			wantCode: communication.CodeNotFound,
		},
		{
			name: "invalid path string",
			msg: communication.Message{
				Type:    communication.MessageTypeIsDirectory,
				Payload: communication.IsDirectoryRequest{Path: "relative"},
			},
			wantCode: communication.CodeBadRequest,
		},
		{
			name: "create file without storage",
			msg: communication.Message{
				Type:    communication.MessageTypeCreateFile,
				Payload: communication.CreateFileRequest{Path: "/dir/f"},
			},
			wantCode: communication.CodeUnavailable,
		},
		{
			name: "unlock without lock",
			msg: communication.Message{
				Type:    communication.MessageTypeUnlock,
				Payload: communication.UnlockRequest{Path: "/dir"},
			},
			wantCode: communication.CodeBadRequest,
		},
		{
			name: "wrong payload type",
			msg: communication.Message{
				Type:    communication.MessageTypeIsDirectory,
				Payload: communication.ListRequest{Path: "/dir"},
			},
			wantCode: communication.CodeBadRequest,
		},
		{
			name:     "unknown message type",
			msg:      communication.Message{Type: "bogus"},
			wantCode: communication.CodeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.serviceHandlers.handle(ctx, tt.msg)
			if err != nil {
				t.Fatalf("handle() error = %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("handle() code = %s, want %s (body %s)", resp.Code, tt.wantCode, resp.Body)
			}
		})
	}
}

func TestRegisterHandler(t *testing.T) {
	srv, ns, _ := newTestNamingServer(t)
	ctx := context.Background()

	resp, err := srv.registrationHandlers.handle(ctx, communication.Message{
		Type: communication.MessageTypeRegister,
		Payload: communication.RegisterRequest{
			DataAddress:    "s1:7000",
			ControlAddress: "s1:7001",
			Paths:          []string{"/a", "/a/b"},
		},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("register handle() = %s, %v", resp.Code, err)
	}

	var registered communication.RegisterResponse
	if err := json.Unmarshal(resp.Body, &registered); err != nil {
		t.Fatal(err)
	}
	if len(registered.ToDelete) != 0 {
		t.Errorf("ToDelete = %v, want empty", registered.ToDelete)
	}

	if !ns.HasPath(mustPath(t, "/a/b")) {
		t.Error("registered path missing from namespace")
	}

	// The same handle pair again is a conflict.
	resp, err = srv.registrationHandlers.handle(ctx, communication.Message{
		Type: communication.MessageTypeRegister,
		Payload: communication.RegisterRequest{
			DataAddress:    "s1:7000",
			ControlAddress: "s1:7001",
		},
	})
	if err != nil || resp.Code != communication.CodeConflict {
		t.Errorf("duplicate register handle() = %s, %v, want CONFLICT", resp.Code, err)
	}
}

func TestListHandler(t *testing.T) {
	srv, ns, _ := newTestNamingServer(t)

	ns.AddDirectory(mustPath(t, "/dir"))
	ns.AddDirectory(mustPath(t, "/dir/sub"))
	ns.AddFile(mustPath(t, "/dir/f"), storage_registry.StorageServerHandle{DataAddress: "s1:7000", ControlAddress: "s1:7001"})

	resp, err := srv.serviceHandlers.handle(context.Background(), communication.Message{
		Type:    communication.MessageTypeList,
		Payload: communication.ListRequest{Path: "/dir"},
	})
	if err != nil || resp.Code != communication.CodeOK {
		t.Fatalf("list handle() = %s, %v", resp.Code, err)
	}

	var listed communication.ListResponse
	if err := json.Unmarshal(resp.Body, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Children) != 2 || listed.Children[0] != "f" || listed.Children[1] != "sub" {
		t.Errorf("Children = %v, want [f sub]", listed.Children)
	}
}
