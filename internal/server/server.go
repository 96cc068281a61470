package server

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tanmaygrover/namestore/internal/communication"
)

// Well-known naming server ports. Clients and storage servers construct
// stubs from these without discovery; storage-server ports are chosen
// per instance.
const (
	ServicePort      = 6000
	RegistrationPort = 6001
)

type TypedHandler struct {
	Handler     func(ctx context.Context, msg communication.Message) (*communication.Response, error)
	PayloadType reflect.Type
}

// handlerSet dispatches incoming messages to typed handlers, rejecting
// payloads whose concrete type does not match the registration.
type handlerSet struct {
	handlers map[string]*TypedHandler
}

func newHandlerSet() *handlerSet {
	return &handlerSet{handlers: make(map[string]*TypedHandler)}
}

func (hs *handlerSet) register(msgType string, payloadType reflect.Type, handler func(ctx context.Context, msg communication.Message) (*communication.Response, error)) {
	hs.handlers[msgType] = &TypedHandler{
		Handler:     handler,
		PayloadType: payloadType,
	}
}

func (hs *handlerSet) handle(ctx context.Context, msg communication.Message) (*communication.Response, error) {
	typedHandler, exists := hs.handlers[msg.Type]
	if !exists {
		return &communication.Response{
			Code: communication.CodeBadRequest,
			Body: []byte(fmt.Sprintf("No handler registered for message type: %s", msg.Type)),
		}, nil
	}

	if msg.Payload != nil {
		actualType := reflect.TypeOf(msg.Payload)
		if actualType != typedHandler.PayloadType {
			return &communication.Response{
				Code: communication.CodeBadRequest,
				Body: []byte(fmt.Sprintf("Invalid payload type for %s: expected %s, got %s", msg.Type, typedHandler.PayloadType, actualType)),
			}, nil
		}
	}

	return typedHandler.Handler(ctx, msg)
}
