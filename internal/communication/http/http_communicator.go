package httpcomm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/tanmaygrover/namestore/internal/communication"
	"github.com/tanmaygrover/namestore/internal/log_service"
)

type HTTPCommunicator struct {
	listenAddress string
	httpServer    *http.Server
	handler       communication.MessageHandler
	ls            log_service.LogService
	clientLock    sync.RWMutex
	clients       map[string]*http.Client
	payloadTypes  map[string]reflect.Type
}

type httpMessage struct {
	From    string          `json:"from"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type httpResponse struct {
	Code    string            `json:"code"`
	Body    []byte            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func NewHTTPCommunicator(listenAddress string, ls log_service.LogService) *HTTPCommunicator {
	return &HTTPCommunicator{
		listenAddress: listenAddress,
		ls:            ls,
		clients:       make(map[string]*http.Client),
		payloadTypes:  communication.DefaultPayloadTypes(),
	}
}

func (c *HTTPCommunicator) Address() string {
	return c.listenAddress
}

func (c *HTTPCommunicator) Start(handler communication.MessageHandler) error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Starting HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	c.handler = handler

	mux := http.NewServeMux()
	mux.HandleFunc("/message", c.handleHTTPMessage)

	lis, err := net.Listen("tcp", c.listenAddress)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to listen on address",
			Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
		})
		return communication.ErrServerStartFailed
	}
	c.listenAddress = lis.Addr().String()

	c.httpServer = &http.Server{
		Addr:    c.listenAddress,
		Handler: mux,
	}

	go func() {
		if err := c.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
			c.ls.Error(log_service.LogEvent{
				Message:  "HTTP server error",
				Metadata: map[string]any{"address": c.listenAddress, "error": err.Error()},
			})
		}
	}()

	return nil
}

func (c *HTTPCommunicator) Stop() error {
	c.ls.Info(log_service.LogEvent{
		Message:  "Stopping HTTP communicator",
		Metadata: map[string]any{"address": c.listenAddress},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.httpServer.Shutdown(ctx); err != nil {
		return communication.ErrServerStopFailed
	}
	return nil
}

func (c *HTTPCommunicator) Send(ctx context.Context, to string, msg communication.Message) (*communication.Response, error) {
	c.clientLock.RLock()
	client, ok := c.clients[to]
	c.clientLock.RUnlock()

	if !ok {
		client = &http.Client{}
		c.clientLock.Lock()
		c.clients[to] = client
		c.clientLock.Unlock()
	}

	var payloadBytes []byte
	if msg.Payload != nil {
		var err error
		payloadBytes, err = json.Marshal(msg.Payload)
		if err != nil {
			return nil, communication.ErrPayloadMarshalFailed
		}
	}

	body, err := json.Marshal(httpMessage{
		From:    msg.From,
		Type:    msg.Type,
		Payload: payloadBytes,
	})
	if err != nil {
		return nil, communication.ErrPayloadMarshalFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+to+"/message", bytes.NewReader(body))
	if err != nil {
		return nil, communication.ErrHTTPRequestCreateFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		c.ls.Error(log_service.LogEvent{
			Message:  "Failed to send HTTP message",
			Metadata: map[string]any{"to": to, "type": msg.Type, "error": err.Error()},
		})
		return nil, communication.ErrMessageSendFailed
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, communication.ErrHTTPResponseReadFailed
	}

	var decoded httpResponse
	if err := json.Unmarshal(respBytes, &decoded); err != nil {
		return nil, communication.ErrHTTPResponseReadFailed
	}

	return &communication.Response{
		Code:    communication.StoreCode(decoded.Code),
		Body:    decoded.Body,
		Headers: decoded.Headers,
	}, nil
}

func (c *HTTPCommunicator) handleHTTPMessage(w http.ResponseWriter, r *http.Request) {
	if c.handler == nil {
		http.Error(w, communication.ErrHandlerNotSet.Error(), http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, communication.ErrHTTPBodyReadFailed.Error(), http.StatusBadRequest)
		return
	}

	var wire httpMessage
	if err := json.Unmarshal(body, &wire); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := communication.Message{
		From: wire.From,
		Type: wire.Type,
	}

	if len(wire.Payload) > 0 {
		payloadType, ok := c.payloadTypes[wire.Type]
		if !ok {
			http.Error(w, communication.ErrPayloadUnmarshalFailed.Error(), http.StatusBadRequest)
			return
		}

		payload := reflect.New(payloadType).Interface()
		if err := json.Unmarshal(wire.Payload, payload); err != nil {
			http.Error(w, communication.ErrPayloadUnmarshalFailed.Error(), http.StatusBadRequest)
			return
		}
		msg.Payload = reflect.ValueOf(payload).Elem().Interface()
	}

	resp, err := c.handler(r.Context(), msg)
	if err != nil {
		resp = &communication.Response{
			Code: communication.CodeInternal,
			Body: []byte(err.Error()),
		}
	}
	if resp == nil {
		resp = &communication.Response{Code: communication.CodeOK}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(mapToHTTPCode(resp.Code))
	_ = json.NewEncoder(w).Encode(httpResponse{
		Code:    string(resp.Code),
		Body:    resp.Body,
		Headers: resp.Headers,
	})
}

func mapToHTTPCode(code communication.StoreCode) int {
	switch code {
	case communication.CodeOK:
		return http.StatusOK
	case communication.CodeBadRequest, communication.CodeOutOfBounds:
		return http.StatusBadRequest
	case communication.CodeNotFound:
		return http.StatusNotFound
	case communication.CodeConflict, communication.CodeAlreadyExists:
		return http.StatusConflict
	case communication.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var _ communication.Communicator = (*HTTPCommunicator)(nil)
