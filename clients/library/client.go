// Package namelib is the client library for namestore. It wraps the
// naming server's Service and Registration interfaces and the storage
// servers' data interface behind typed methods over a communicator.
package namelib

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tanmaygrover/namestore/internal/communication"
)

func NewNamingClient(serviceAddr string, registrationAddr string, comm communication.Communicator) *NamingClient {
	return &NamingClient{
		ServiceAddr:      serviceAddr,
		RegistrationAddr: registrationAddr,
		Comm:             comm,
		From:             "client-" + uuid.New().String(),
	}
}

func NewStorageClient(comm communication.Communicator) *StorageClient {
	return &StorageClient{
		Comm: comm,
		From: "client-" + uuid.New().String(),
	}
}

// codeError maps a non-OK response code back to a client sentinel.
func codeError(resp *communication.Response) error {
	switch resp.Code {
	case communication.CodeNotFound:
		return ErrNotFound
	case communication.CodeBadRequest:
		return ErrBadRequest
	case communication.CodeUnavailable:
		return ErrNoStorageAvailable
	case communication.CodeConflict:
		return ErrAlreadyRegistered
	case communication.CodeOutOfBounds:
		return ErrOutOfBounds
	default:
		return fmt.Errorf("%w: %s", ErrRemoteFailure, string(resp.Body))
	}
}

func (c *NamingClient) call(ctx context.Context, addr string, msgType string, payload any, out any) error {
	msg := communication.Message{
		From:    c.From,
		Type:    msgType,
		Payload: payload,
	}

	resp, err := c.Comm.Send(ctx, addr, msg)
	if err != nil {
		return err
	}
	if resp.Code != communication.CodeOK {
		return codeError(resp)
	}
	if out != nil {
		return json.Unmarshal(resp.Body, out)
	}
	return nil
}

func (c *NamingClient) Lock(ctx context.Context, path string, exclusive bool) error {
	return c.call(ctx, c.ServiceAddr, communication.MessageTypeLock, communication.LockRequest{Path: path, Exclusive: exclusive}, nil)
}

func (c *NamingClient) Unlock(ctx context.Context, path string, exclusive bool) error {
	return c.call(ctx, c.ServiceAddr, communication.MessageTypeUnlock, communication.UnlockRequest{Path: path, Exclusive: exclusive}, nil)
}

func (c *NamingClient) IsDirectory(ctx context.Context, path string) (bool, error) {
	var out communication.IsDirectoryResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeIsDirectory, communication.IsDirectoryRequest{Path: path}, &out); err != nil {
		return false, err
	}
	return out.IsDirectory, nil
}

func (c *NamingClient) List(ctx context.Context, path string) ([]string, error) {
	var out communication.ListResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeList, communication.ListRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return out.Children, nil
}

func (c *NamingClient) CreateFile(ctx context.Context, path string) (bool, error) {
	var out communication.CreateFileResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeCreateFile, communication.CreateFileRequest{Path: path}, &out); err != nil {
		return false, err
	}
	return out.Created, nil
}

func (c *NamingClient) CreateDirectory(ctx context.Context, path string) (bool, error) {
	var out communication.CreateDirectoryResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeCreateDirectory, communication.CreateDirectoryRequest{Path: path}, &out); err != nil {
		return false, err
	}
	return out.Created, nil
}

func (c *NamingClient) Delete(ctx context.Context, path string) (bool, error) {
	var out communication.DeleteResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeDelete, communication.DeleteRequest{Path: path}, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// GetStorage returns the data address of a storage server hosting path.
func (c *NamingClient) GetStorage(ctx context.Context, path string) (string, error) {
	var out communication.GetStorageResponse
	if err := c.call(ctx, c.ServiceAddr, communication.MessageTypeGetStorage, communication.GetStorageRequest{Path: path}, &out); err != nil {
		return "", err
	}
	return out.DataAddress, nil
}

// Register announces a storage server to the naming server and returns
// the paths the storage server must delete locally.
func (c *NamingClient) Register(ctx context.Context, dataAddr string, controlAddr string, paths []string) ([]string, error) {
	var out communication.RegisterResponse
	req := communication.RegisterRequest{
		DataAddress:    dataAddr,
		ControlAddress: controlAddr,
		Paths:          paths,
	}
	if err := c.call(ctx, c.RegistrationAddr, communication.MessageTypeRegister, req, &out); err != nil {
		return nil, err
	}
	return out.ToDelete, nil
}

func (c *StorageClient) Size(ctx context.Context, addr string, path string) (int64, error) {
	msg := communication.Message{
		From:    c.From,
		Type:    communication.MessageTypeStorageSize,
		Payload: communication.StorageSizeRequest{Path: path},
	}

	resp, err := c.Comm.Send(ctx, addr, msg)
	if err != nil {
		return 0, err
	}
	if resp.Code != communication.CodeOK {
		return 0, codeError(resp)
	}

	var out communication.StorageSizeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return 0, err
	}
	return out.Size, nil
}

func (c *StorageClient) Read(ctx context.Context, addr string, path string, offset int64, length int) ([]byte, error) {
	msg := communication.Message{
		From:    c.From,
		Type:    communication.MessageTypeStorageRead,
		Payload: communication.StorageReadRequest{Path: path, Offset: offset, Length: length},
	}

	resp, err := c.Comm.Send(ctx, addr, msg)
	if err != nil {
		return nil, err
	}
	if resp.Code != communication.CodeOK {
		return nil, codeError(resp)
	}
	return resp.Body, nil
}

func (c *StorageClient) Write(ctx context.Context, addr string, path string, offset int64, data []byte) error {
	msg := communication.Message{
		From:    c.From,
		Type:    communication.MessageTypeStorageWrite,
		Payload: communication.StorageWriteRequest{Path: path, Offset: offset, Data: data},
	}

	resp, err := c.Comm.Send(ctx, addr, msg)
	if err != nil {
		return err
	}
	if resp.Code != communication.CodeOK {
		return codeError(resp)
	}
	return nil
}
