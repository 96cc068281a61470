package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	namelib "github.com/tanmaygrover/namestore/clients/library"
	"github.com/tanmaygrover/namestore/internal/communication"
	grpccomm "github.com/tanmaygrover/namestore/internal/communication/grpc"
	httpcomm "github.com/tanmaygrover/namestore/internal/communication/http"
	"github.com/tanmaygrover/namestore/internal/log_service"
	namesrv "github.com/tanmaygrover/namestore/internal/server"
)

type MCPConfig struct {
	Transport      string `yaml:"transport"`
	ServiceAddress string `yaml:"service_address"`
}

func LoadConfig(path string) (*MCPConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaultConfig := &MCPConfig{
			Transport:      "grpc",
			ServiceAddress: fmt.Sprintf("localhost:%d", namesrv.ServicePort),
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

	config := &MCPConfig{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}
	return config, nil
}

func newCommunicator(transport string, addr string, ls log_service.LogService) communication.Communicator {
	if transport == "http" {
		return httpcomm.NewHTTPCommunicator(addr, ls)
	}
	return grpccomm.NewGRPCCommunicator(addr, ls)
}

func addTools(s *server.MCPServer, naming *namelib.NamingClient) {
	listTool := mcp.NewTool("namestore_list",
		mcp.WithDescription("List the children of a directory in the namestore namespace"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute directory path, e.g. /projects"),
		),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		children, err := naming.List(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list %s: %v", path, err)), nil
		}
		return mcp.NewToolResultText(strings.Join(children, "\n")), nil
	})

	statTool := mcp.NewTool("namestore_stat",
		mcp.WithDescription("Report whether a path is a directory or a file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path"),
		),
	)
	s.AddTool(statTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		isDir, err := naming.IsDirectory(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to stat %s: %v", path, err)), nil
		}
		if isDir {
			return mcp.NewToolResultText(fmt.Sprintf("%s is a directory", path)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s is a file", path)), nil
	})

	mkdirTool := mcp.NewTool("namestore_mkdir",
		mcp.WithDescription("Create a directory in the namestore namespace"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path of the directory to create"),
		),
	)
	s.AddTool(mkdirTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		created, err := naming.CreateDirectory(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create directory %s: %v", path, err)), nil
		}
		if !created {
			return mcp.NewToolResultText(fmt.Sprintf("%s already exists", path)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created directory %s", path)), nil
	})

	createTool := mcp.NewTool("namestore_create_file",
		mcp.WithDescription("Create an empty file on a storage server"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path of the file to create"),
		),
	)
	s.AddTool(createTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		created, err := naming.CreateFile(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create file %s: %v", path, err)), nil
		}
		if !created {
			return mcp.NewToolResultText(fmt.Sprintf("%s already exists", path)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Created file %s", path)), nil
	})

	deleteTool := mcp.NewTool("namestore_delete",
		mcp.WithDescription("Delete a file or directory tree"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to delete"),
		),
	)
	s.AddTool(deleteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		deleted, err := naming.Delete(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to delete %s: %v", path, err)), nil
		}
		if !deleted {
			return mcp.NewToolResultText(fmt.Sprintf("%s was not deleted", path)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", path)), nil
	})
}

func main() {
	configPath := "config/mcp.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ls := log_service.NewConsoleLogService("mcp", "ERROR")
	comm := newCommunicator(config.Transport, ":0", ls)
	naming := namelib.NewNamingClient(config.ServiceAddress, "", comm)

	s := server.NewMCPServer(
		"namestore",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	addTools(s, naming)

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}
}
