package server

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/storage_service"
)

// StorageServer hosts file bytes. It listens on two communicators: data
// (client reads and writes) and control (naming server commands), and
// announces itself to the naming server's registration interface on
// startup.
type StorageServer struct {
	dataComm      communication.Communicator
	controlComm   communication.Communicator
	ss            storage_service.StorageService
	namingAddress string
	baseDir       string
	ls            log_service.LogService
	ctx           context.Context
	cancel        context.CancelFunc

	dataHandlers    *handlerSet
	controlHandlers *handlerSet
}

func NewStorageServer(dataComm communication.Communicator, controlComm communication.Communicator, ss storage_service.StorageService, namingAddress string, baseDir string, ls log_service.LogService) *StorageServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &StorageServer{
		dataComm:        dataComm,
		controlComm:     controlComm,
		ss:              ss,
		namingAddress:   namingAddress,
		baseDir:         baseDir,
		ls:              ls,
		ctx:             ctx,
		cancel:          cancel,
		dataHandlers:    newHandlerSet(),
		controlHandlers: newHandlerSet(),
	}
	s.registerHandlers()
	return s
}

func (s *StorageServer) registerHandlers() {
	s.dataHandlers.register(communication.MessageTypeStorageSize, reflect.TypeOf((*communication.StorageSizeRequest)(nil)).Elem(), s.HandleSizeMessage)
	s.dataHandlers.register(communication.MessageTypeStorageRead, reflect.TypeOf((*communication.StorageReadRequest)(nil)).Elem(), s.HandleReadMessage)
	s.dataHandlers.register(communication.MessageTypeStorageWrite, reflect.TypeOf((*communication.StorageWriteRequest)(nil)).Elem(), s.HandleWriteMessage)

	s.controlHandlers.register(communication.MessageTypeStorageCreate, reflect.TypeOf((*communication.StorageCreateRequest)(nil)).Elem(), s.HandleCreateMessage)
	s.controlHandlers.register(communication.MessageTypeStorageDelete, reflect.TypeOf((*communication.StorageDeleteRequest)(nil)).Elem(), s.HandleDeleteMessage)
	s.controlHandlers.register(communication.MessageTypeStorageCopy, reflect.TypeOf((*communication.StorageCopyRequest)(nil)).Elem(), s.HandleCopyMessage)
}

// Start brings up both listeners, advertises the local file tree to the
// naming server, and prunes the duplicates the naming server reports
// back.
func (s *StorageServer) Start() error {
	if err := s.dataComm.Start(s.dataHandlers.handle); err != nil {
		return err
	}
	if err := s.controlComm.Start(s.controlHandlers.handle); err != nil {
		return err
	}

	files, err := dfspath.List(s.baseDir)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(files))
	for _, p := range files {
		paths = append(paths, p.String())
	}

	msg := communication.Message{
		From: s.controlComm.Address(),
		Type: communication.MessageTypeRegister,
		Payload: communication.RegisterRequest{
			DataAddress:    s.dataComm.Address(),
			ControlAddress: s.controlComm.Address(),
			Paths:          paths,
		},
	}

	resp, err := s.controlComm.Send(s.ctx, s.namingAddress, msg)
	if err != nil {
		return err
	}
	if resp.Code != communication.CodeOK {
		s.ls.Error(log_service.LogEvent{
			Message:  "Registration rejected",
			Metadata: map[string]any{"naming": s.namingAddress, "code": string(resp.Code), "body": string(resp.Body)},
		})
		return ErrRegistrationRejected
	}

	var registered communication.RegisterResponse
	if err := json.Unmarshal(resp.Body, &registered); err != nil {
		return err
	}

	for _, raw := range registered.ToDelete {
		p, err := dfspath.Parse(raw)
		if err != nil {
			continue
		}
		s.ss.Delete(p)
	}

	s.ls.Info(log_service.LogEvent{
		Message:  "Storage server started",
		Metadata: map[string]any{"data": s.dataComm.Address(), "control": s.controlComm.Address(), "advertised": len(paths), "pruned": len(registered.ToDelete)},
	})
	return nil
}

func (s *StorageServer) Stop() error {
	s.cancel()
	if err := s.dataComm.Stop(); err != nil {
		return err
	}
	return s.controlComm.Stop()
}

func (s *StorageServer) DataAddress() string {
	return s.dataComm.Address()
}

func (s *StorageServer) ControlAddress() string {
	return s.controlComm.Address()
}

func storageErrorResponse(err error) *communication.Response {
	code := communication.CodeInternal
	switch {
	case errors.Is(err, storage_service.ErrFileNotFound):
		code = communication.CodeNotFound
	case errors.Is(err, storage_service.ErrOutOfBounds):
		code = communication.CodeOutOfBounds
	case errors.Is(err, dfspath.ErrInvalidPath):
		code = communication.CodeBadRequest
	}
	return &communication.Response{
		Code: code,
		Body: []byte(err.Error()),
	}
}

func (s *StorageServer) HandleSizeMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageSizeRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	size, err := s.ss.Size(p)
	if err != nil {
		return storageErrorResponse(err), nil
	}
	return jsonResponse(communication.StorageSizeResponse{Size: size}), nil
}

func (s *StorageServer) HandleReadMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageReadRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	data, err := s.ss.Read(p, request.Offset, request.Length)
	if err != nil {
		return storageErrorResponse(err), nil
	}
	return &communication.Response{
		Code: communication.CodeOK,
		Body: data,
	}, nil
}

func (s *StorageServer) HandleWriteMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageWriteRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	if err := s.ss.Write(p, request.Offset, request.Data); err != nil {
		return storageErrorResponse(err), nil
	}
	return &communication.Response{Code: communication.CodeOK}, nil
}

func (s *StorageServer) HandleCreateMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageCreateRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	return jsonResponse(communication.StorageCreateResponse{Created: s.ss.Create(p)}), nil
}

func (s *StorageServer) HandleDeleteMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageDeleteRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	return jsonResponse(communication.StorageDeleteResponse{Deleted: s.ss.Delete(p)}), nil
}

func (s *StorageServer) HandleCopyMessage(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	request := msg.Payload.(communication.StorageCopyRequest)

	p, err := dfspath.Parse(request.Path)
	if err != nil {
		return storageErrorResponse(err), nil
	}

	copied, err := s.ss.Copy(ctx, p, request.SourceAddress)
	if err != nil {
		return storageErrorResponse(err), nil
	}
	return jsonResponse(communication.StorageCopyResponse{Copied: copied}), nil
}
