package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/tanmaygrover/namestore/internal/communication"
	grpccomm "github.com/tanmaygrover/namestore/internal/communication/grpc"
	httpcomm "github.com/tanmaygrover/namestore/internal/communication/http"
	"github.com/tanmaygrover/namestore/internal/lock_service"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/namespace_service"
	"github.com/tanmaygrover/namestore/internal/naming_service"
	"github.com/tanmaygrover/namestore/internal/replication_service"
	"github.com/tanmaygrover/namestore/internal/server"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

type NamingConfig struct {
	NodeID               string `yaml:"node_id"`
	Transport            string `yaml:"transport"`
	ServiceAddress       string `yaml:"service_address"`
	RegistrationAddress  string `yaml:"registration_address"`
	LogDir               string `yaml:"log_dir"`
	LogLevel             string `yaml:"log_level"`
	ReplicationThreshold int    `yaml:"replication_threshold"`
}

func LoadConfig(path string) (*NamingConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaultConfig := &NamingConfig{
			NodeID:               "naming1",
			Transport:            "grpc",
			ServiceAddress:       fmt.Sprintf(":%d", server.ServicePort),
			RegistrationAddress:  fmt.Sprintf(":%d", server.RegistrationPort),
			LogDir:               "./data/logs",
			LogLevel:             "INFO",
			ReplicationThreshold: replication_service.DefaultReadThreshold,
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %v", err)
		}

		data, err := yaml.Marshal(defaultConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write default config: %v", err)
		}
		return defaultConfig, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	config := &NamingConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	return config, nil
}

// newCommunicator picks the wire transport from config; gRPC unless HTTP
// is asked for explicitly.
func newCommunicator(transport string, addr string, ls log_service.LogService) communication.Communicator {
	if transport == "http" {
		return httpcomm.NewHTTPCommunicator(addr, ls)
	}
	return grpccomm.NewGRPCCommunicator(addr, ls)
}

func main() {
	configPath := "config/naming.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ls := log_service.NewLocalDiscLogService(config.LogDir, config.NodeID, config.LogLevel)

	serviceComm := newCommunicator(config.Transport, config.ServiceAddress, ls)
	registrationComm := newCommunicator(config.Transport, config.RegistrationAddress, ls)

	ns := namespace_service.NewInMemoryNamespaceService(ls)
	registry := storage_registry.NewInMemoryStorageRegistry(ls)
	locks := lock_service.NewHierarchicalLockService(ns, ls)
	repl := replication_service.NewDefaultReplicationService(ns, registry, serviceComm, ls, config.ReplicationThreshold)
	svc := naming_service.NewDefaultNamingService(ns, registry, locks, repl, serviceComm, ls)

	srv := server.NewNamingServer(serviceComm, registrationComm, svc, ls)
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start naming server: %v", err)
	}
	log.Printf("Naming server listening on %s (service) and %s (registration)", srv.ServiceAddress(), srv.RegistrationAddress())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down naming server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Failed to stop naming server: %v", err)
	}
}
