package server

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/lock_service"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/naming_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

// NamingServer exposes the naming service over two communicators: the
// client-facing Service interface and the storage-facing Registration
// interface, each on its own well-known port.
type NamingServer struct {
	serviceComm      communication.Communicator
	registrationComm communication.Communicator
	svc              naming_service.NamingService
	ls               log_service.LogService
	ctx              context.Context
	cancel           context.CancelFunc

	serviceHandlers      *handlerSet
	registrationHandlers *handlerSet
}

func NewNamingServer(serviceComm communication.Communicator, registrationComm communication.Communicator, svc naming_service.NamingService, ls log_service.LogService) *NamingServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &NamingServer{
		serviceComm:          serviceComm,
		registrationComm:     registrationComm,
		svc:                  svc,
		ls:                   ls,
		ctx:                  ctx,
		cancel:               cancel,
		serviceHandlers:      newHandlerSet(),
		registrationHandlers: newHandlerSet(),
	}
	s.registerHandlers()
	return s
}

func (s *NamingServer) registerHandlers() {
	s.serviceHandlers.register(communication.MessageTypeLock, reflect.TypeOf((*communication.LockRequest)(nil)).Elem(), s.HandleLockMessage)
	s.serviceHandlers.register(communication.MessageTypeUnlock, reflect.TypeOf((*communication.UnlockRequest)(nil)).Elem(), s.HandleUnlockMessage)
	s.serviceHandlers.register(communication.MessageTypeIsDirectory, reflect.TypeOf((*communication.IsDirectoryRequest)(nil)).Elem(), s.HandleIsDirectoryMessage)
	s.serviceHandlers.register(communication.MessageTypeList, reflect.TypeOf((*communication.ListRequest)(nil)).Elem(), s.HandleListMessage)
	s.serviceHandlers.register(communication.MessageTypeCreateFile, reflect.TypeOf((*communication.CreateFileRequest)(nil)).Elem(), s.HandleCreateFileMessage)
	s.serviceHandlers.register(communication.MessageTypeCreateDirectory, reflect.TypeOf((*communication.CreateDirectoryRequest)(nil)).Elem(), s.HandleCreateDirectoryMessage)
	s.serviceHandlers.register(communication.MessageTypeDelete, reflect.TypeOf((*communication.DeleteRequest)(nil)).Elem(), s.HandleDeleteMessage)
	s.serviceHandlers.register(communication.MessageTypeGetStorage, reflect.TypeOf((*communication.GetStorageRequest)(nil)).Elem(), s.HandleGetStorageMessage)

	s.registrationHandlers.register(communication.MessageTypeRegister, reflect.TypeOf((*communication.RegisterRequest)(nil)).Elem(), s.HandleRegisterMessage)
}

func (s *NamingServer) Start() error {
	if err := s.registrationComm.Start(s.registrationHandlers.handle); err != nil {
		return err
	}
	if err := s.serviceComm.Start(s.serviceHandlers.handle); err != nil {
		return err
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Naming server started",
		Metadata: map[string]any{"service": s.serviceComm.Address(), "registration": s.registrationComm.Address()},
	})
	return nil
}

func (s *NamingServer) Stop() error {
	s.cancel()
	if err := s.registrationComm.Stop(); err != nil {
		return err
	}
	return s.serviceComm.Stop()
}

func (s *NamingServer) ServiceAddress() string {
	return s.serviceComm.Address()
}

func (s *NamingServer) RegistrationAddress() string {
	return s.registrationComm.Address()
}

func codeForError(err error) communication.StoreCode {
	switch {
	case errors.Is(err, namespace_service.ErrPathNotFound),
		errors.Is(err, namespace_service.ErrNotAFile),
		errors.Is(err, lock_service.ErrPathNotFound):
		return communication.CodeNotFound
	case errors.Is(err, namespace_service.ErrNotADirectory),
		errors.Is(err, lock_service.ErrLockNotHeld),
		errors.Is(err, naming_service.ErrInvalidRegistration),
		errors.Is(err, dfspath.ErrInvalidPath),
		errors.Is(err, dfspath.ErrInvalidComponent):
		return communication.CodeBadRequest
	case errors.Is(err, naming_service.ErrNoStorageAvailable):
		return communication.CodeUnavailable
	case errors.Is(err, storage_registry.ErrServerAlreadyRegistered):
		return communication.CodeConflict
	default:
		return communication.CodeInternal
	}
}

func errorResponse(err error) *communication.Response {
	return &communication.Response{
		Code: codeForError(err),
		Body: []byte(err.Error()),
	}
}

func jsonResponse(v any) *communication.Response {
	body, err := json.Marshal(v)
	if err != nil {
		return &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte(err.Error()),
		}
	}
	return &communication.Response{
		Code: communication.CodeOK,
		Body: body,
	}
}

func (s *NamingServer) HandleLockMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.LockRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	if err := s.svc.Lock(ctx, p, request.Exclusive); err != nil {
		return errorResponse(err), nil
	}
	return &communication.Response{Code: communication.CodeOK}, nil
}

func (s *NamingServer) HandleUnlockMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.UnlockRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	if err := s.svc.Unlock(p, request.Exclusive); err != nil {
		return errorResponse(err), nil
	}
	return &communication.Response{Code: communication.CodeOK}, nil
}

func (s *NamingServer) HandleIsDirectoryMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.IsDirectoryRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	isDir, err := s.svc.IsDirectory(p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.IsDirectoryResponse{IsDirectory: isDir}), nil
}

func (s *NamingServer) HandleListMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.ListRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	children, err := s.svc.List(p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.ListResponse{Children: children}), nil
}

func (s *NamingServer) HandleCreateFileMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.CreateFileRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	created, err := s.svc.CreateFile(ctx, p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.CreateFileResponse{Created: created}), nil
}

func (s *NamingServer) HandleCreateDirectoryMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.CreateDirectoryRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	created, err := s.svc.CreateDirectory(p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.CreateDirectoryResponse{Created: created}), nil
}

func (s *NamingServer) HandleDeleteMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.DeleteRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	deleted, err := s.svc.Delete(ctx, p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.DeleteResponse{Deleted: deleted}), nil
}

func (s *NamingServer) HandleGetStorageMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.GetStorageRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return errorResponse(err), nil
	}

	handle, err := s.svc.GetStorage(p)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(communication.GetStorageResponse{DataAddress: handle.DataAddress}), nil
}

func (s *NamingServer) HandleRegisterMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.RegisterRequest)

	paths := make([]dfspath.Path, 0, len(request.Paths))
	for _, raw := range request.Paths {
		p, err := dfspath.Parse(raw)
		if err != nil {
			return errorResponse(err), nil
		}
		paths = append(paths, p)
	}

	toDelete, err := s.svc.Register(request.DataAddress, request.ControlAddress, paths)
	if err != nil {
		return errorResponse(err), nil
	}

	deleteStrings := make([]string, 0, len(toDelete))
	for _, p := range toDelete {
		deleteStrings = append(deleteStrings, p.String())
	}
	return jsonResponse(communication.RegisterResponse{ToDelete: deleteStrings}), nil
}
