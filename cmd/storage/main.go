package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tanmaygrover/namestore/internal/communication"
	grpccomm "github.com/tanmaygrover/namestore/internal/communication/grpc"
	httpcomm "github.com/tanmaygrover/namestore/internal/communication/http"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/server"
	"github.com/tanmaygrover/namestore/internal/storage_service"
)

type StorageConfig struct {
	NodeID         string `yaml:"node_id"`
	Transport      string `yaml:"transport"`
	DataAddress    string `yaml:"data_address"`
	ControlAddress string `yaml:"control_address"`
	NamingAddress  string `yaml:"naming_address"`
	DataDir        string `yaml:"data_dir"`
	LogDir         string `yaml:"log_dir"`
	LogLevel       string `yaml:"log_level"`
}

func LoadConfig(path string) (*StorageConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaultConfig := &StorageConfig{
			NodeID:         "storage-" + uuid.New().String()[:8],
			Transport:      "grpc",
			DataAddress:    ":0",
			ControlAddress: ":0",
			NamingAddress:  fmt.Sprintf("localhost:%d", server.RegistrationPort),
			DataDir:        "./data/files",
			LogDir:         "./data/logs",
			LogLevel:       "INFO",
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

	config := &StorageConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	if config.NodeID == "" {
		config.NodeID = "storage-" + uuid.New().String()[:8]
	}
	return config, nil
}

func newCommunicator(transport string, addr string, ls log_service.LogService) communication.Communicator {
	if transport == "http" {
		return httpcomm.NewHTTPCommunicator(addr, ls)
	}
	return grpccomm.NewGRPCCommunicator(addr, ls)
}

func main() {
	configPath := "config/storage.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ls := log_service.NewLocalDiscLogService(config.LogDir, config.NodeID, config.LogLevel)

	dataComm := newCommunicator(config.Transport, config.DataAddress, ls)
	controlComm := newCommunicator(config.Transport, config.ControlAddress, ls)

	ss := storage_service.NewLocalDiscStorageService(config.DataDir, controlComm, ls)
	srv := server.NewStorageServer(dataComm, controlComm, ss, config.NamingAddress, config.DataDir, ls)

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start storage server: %v", err)
	}
	log.Printf("Storage server %s listening on %s (data) and %s (control)", config.NodeID, srv.DataAddress(), srv.ControlAddress())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down storage server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Failed to stop storage server: %v", err)
	}
}
