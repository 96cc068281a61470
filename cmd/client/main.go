package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	namelib "github.com/tanmaygrover/namestore/clients/library"
	"github.com/tanmaygrover/namestore/internal/communication"
	grpccomm "github.com/tanmaygrover/namestore/internal/communication/grpc"
	httpcomm "github.com/tanmaygrover/namestore/internal/communication/http"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/server"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: client <command> [args]

commands:
  ls <path>            list directory children
  stat <path>          report whether path is a directory or a file
  mkdir <path>         create a directory
  create <path>        create an empty file
  rm <path>            delete a file or directory tree
  read <path>          print file contents
  write <path> <text>  write text at offset 0

The naming server address defaults to localhost:%d and can be overridden
with the NAMESTORE_ADDR environment variable. NAMESTORE_TRANSPORT
selects the wire transport (grpc or http, matching the server).
`, server.ServicePort)
	os.Exit(2)
}

func newCommunicator(transport string, addr string, ls log_service.LogService) communication.Communicator {
	if transport == "http" {
		return httpcomm.NewHTTPCommunicator(addr, ls)
	}
	return grpccomm.NewGRPCCommunicator(addr, ls)
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}

	serviceAddr := os.Getenv("NAMESTORE_ADDR")
	if serviceAddr == "" {
		serviceAddr = fmt.Sprintf("localhost:%d", server.ServicePort)
	}

	ls := log_service.NewConsoleLogService("client", "ERROR")
	comm := newCommunicator(os.Getenv("NAMESTORE_TRANSPORT"), ":0", ls)
	naming := namelib.NewNamingClient(serviceAddr, "", comm)
	storage := namelib.NewStorageClient(comm)

	ctx := context.Background()
	command, path := os.Args[1], os.Args[2]

	switch command {
	case "ls":
		children, err := naming.List(ctx, path)
		if err != nil {
			log.Fatalf("list failed: %v", err)
		}
		for _, child := range children {
			fmt.Println(child)
		}
	case "stat":
		isDir, err := naming.IsDirectory(ctx, path)
		if err != nil {
			log.Fatalf("stat failed: %v", err)
		}
		if isDir {
			fmt.Printf("%s: directory\n", path)
		} else {
			fmt.Printf("%s: file\n", path)
		}
	case "mkdir":
		created, err := naming.CreateDirectory(ctx, path)
		if err != nil {
			log.Fatalf("mkdir failed: %v", err)
		}
		if !created {
			fmt.Printf("%s already exists\n", path)
		}
	case "create":
		created, err := naming.CreateFile(ctx, path)
		if err != nil {
			log.Fatalf("create failed: %v", err)
		}
		if !created {
			fmt.Printf("%s already exists\n", path)
		}
	case "rm":
		deleted, err := naming.Delete(ctx, path)
		if err != nil {
			log.Fatalf("rm failed: %v", err)
		}
		if !deleted {
			fmt.Printf("%s not deleted\n", path)
		}
	case "read":
		if err := naming.Lock(ctx, path, false); err != nil {
			log.Fatalf("lock failed: %v", err)
		}
		defer naming.Unlock(ctx, path, false)

		addr, err := naming.GetStorage(ctx, path)
		if err != nil {
			log.Fatalf("getstorage failed: %v", err)
		}
		size, err := storage.Size(ctx, addr, path)
		if err != nil {
			log.Fatalf("size failed: %v", err)
		}
		data, err := storage.Read(ctx, addr, path, 0, int(size))
		if err != nil {
			log.Fatalf("read failed: %v", err)
		}
		os.Stdout.Write(data)
	case "write":
		if len(os.Args) < 4 {
			usage()
		}
		text := os.Args[3]

		if err := naming.Lock(ctx, path, true); err != nil {
			log.Fatalf("lock failed: %v", err)
		}
		defer naming.Unlock(ctx, path, true)

		addr, err := naming.GetStorage(ctx, path)
		if err != nil {
			log.Fatalf("getstorage failed: %v", err)
		}
		if err := storage.Write(ctx, addr, path, 0, []byte(text)); err != nil {
			log.Fatalf("write failed: %v", err)
		}
		fmt.Printf("wrote %s bytes\n", strconv.Itoa(len(text)))
	default:
		usage()
	}
}
