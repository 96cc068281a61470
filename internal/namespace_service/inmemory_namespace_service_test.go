package namespace_service

import (
	"sort"
	"testing"

	"github.com/tanmaygrover/namestore/internal/dfspath"
	"github.com/tanmaygrover/namestore/internal/log_service"
	"github.com/tanmaygrover/namestore/internal/storage_registry"
)

func newTestNamespace() *InMemoryNamespaceService {
	return NewInMemoryNamespaceService(log_service.NewConsoleLogService("test", "ERROR"))
}

func path(t *testing.T, s string) dfspath.Path {
	t.Helper()
	p, err := dfspath.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return p
}

var (
	h1 = storage_registry.StorageServerHandle{DataAddress: "s1:7000", ControlAddress: "s1:7001"}
	h2 = storage_registry.StorageServerHandle{DataAddress: "s2:7000", ControlAddress: "s2:7001"}
)

func TestIsDirectory(t *testing.T) {
	ns := newTestNamespace()
	ns.AddDirectory(path(t, "/dir"))
	ns.AddFile(path(t, "/dir/file"), h1)

	tests := []struct {
		name    string
		path    string
		want    bool
		wantErr error
	}{
		{name: "root", path: "/", want: true},
		{name: "directory", path: "/dir", want: true},
		{name: "file", path: "/dir/file", want: false},
		{name: "unknown", path: "/nope", wantErr: ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ns.IsDirectory(path(t, tt.path))
			if err != tt.wantErr {
				t.Errorf("IsDirectory() error = %v, want %v", err, tt.wantErr)
				return
			}
			if err == nil && got != tt.want {
				t.Errorf("IsDirectory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListChildren(t *testing.T) {
	ns := newTestNamespace()
	ns.AddDirectory(path(t, "/a"))
	ns.AddDirectory(path(t, "/a/sub"))
	ns.AddFile(path(t, "/a/one"), h1)
	ns.AddFile(path(t, "/a/two"), h1)
	ns.AddFile(path(t, "/a/two"), h2)
	ns.AddFile(path(t, "/a/sub/deeper"), h1)

	children, err := ns.ListChildren(path(t, "/a"))
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}

	want := []string{"one", "sub", "two"}
	if len(children) != len(want) {
		t.Fatalf("ListChildren() = %v, want %v", children, want)
	}
	for i := range want {
		if children[i] != want[i] {
			t.Errorf("ListChildren()[%d] = %q, want %q", i, children[i], want[i])
		}
	}

	if _, err := ns.ListChildren(path(t, "/nope")); err != ErrPathNotFound {
		t.Errorf("ListChildren(unknown) error = %v, want ErrPathNotFound", err)
	}
	if _, err := ns.ListChildren(path(t, "/a/one")); err != ErrNotADirectory {
		t.Errorf("ListChildren(file) error = %v, want ErrNotADirectory", err)
	}
}

func TestFileHandles(t *testing.T) {
	ns := newTestNamespace()
	ns.AddDirectory(path(t, "/dir"))
	ns.AddFile(path(t, "/f"), h1)
	ns.AddFile(path(t, "/f"), h2)

	handles, err := ns.FileHandles(path(t, "/f"))
	if err != nil {
		t.Fatalf("FileHandles() error = %v", err)
	}
	if len(handles) != 2 {
		t.Errorf("FileHandles() returned %d handles, want 2", len(handles))
	}

	if _, err := ns.FileHandles(path(t, "/dir")); err != ErrNotAFile {
		t.Errorf("FileHandles(directory) error = %v, want ErrNotAFile", err)
	}
	if _, err := ns.FileHandles(path(t, "/nope")); err != ErrNotAFile {
		t.Errorf("FileHandles(unknown) error = %v, want ErrNotAFile", err)
	}
}

func TestRemoveReplica(t *testing.T) {
	ns := newTestNamespace()
	ns.AddFile(path(t, "/f"), h1)
	ns.AddFile(path(t, "/f"), h2)

	ns.RemoveReplica(path(t, "/f"), h2)
	handles, err := ns.FileHandles(path(t, "/f"))
	if err != nil || len(handles) != 1 || handles[0] != h1 {
		t.Fatalf("FileHandles() after removal = %v, %v", handles, err)
	}

	// Dropping the last replica removes the file entirely.
	ns.RemoveReplica(path(t, "/f"), h1)
	if ns.HasPath(path(t, "/f")) {
		t.Error("file still present after last replica removed")
	}
}

func TestRemoveSubtree(t *testing.T) {
	ns := newTestNamespace()
	ns.AddDirectory(path(t, "/a"))
	ns.AddDirectory(path(t, "/a/b"))
	ns.AddFile(path(t, "/a/b/f1"), h1)
	ns.AddFile(path(t, "/a/f2"), h2)
	ns.AddFile(path(t, "/other"), h1)

	hosts, err := ns.RemoveSubtree(path(t, "/a"))
	if err != nil {
		t.Fatalf("RemoveSubtree() error = %v", err)
	}
	if len(hosts) != 2 {
		t.Errorf("RemoveSubtree() returned %d hosts, want 2", len(hosts))
	}

	for _, gone := range []string{"/a", "/a/b", "/a/b/f1", "/a/f2"} {
		if ns.HasPath(path(t, gone)) {
			t.Errorf("path %s still present after subtree removal", gone)
		}
	}
	if !ns.HasPath(path(t, "/other")) {
		t.Error("unrelated path removed")
	}
	if !ns.HasPath(dfspath.Root()) {
		t.Error("root removed")
	}

	if _, err := ns.RemoveSubtree(path(t, "/nope")); err != ErrPathNotFound {
		t.Errorf("RemoveSubtree(unknown) error = %v, want ErrPathNotFound", err)
	}
}

func TestMergeRegistration(t *testing.T) {
	ns := newTestNamespace()

	toDelete := ns.MergeRegistration([]dfspath.Path{
		path(t, "/a"),
		path(t, "/a/b"),
		path(t, "/a/b/c"),
	}, h1)
	if len(toDelete) != 0 {
		t.Fatalf("first registration toDelete = %v, want empty", toDelete)
	}

	// Advertised paths are recorded as files in order; the ancestor walk
	// marks /a and /a/b as directories as well, which list and stat then
	// prefer.
	for _, file := range []string{"/a", "/a/b", "/a/b/c"} {
		handles, err := ns.FileHandles(path(t, file))
		if err != nil {
			t.Fatalf("FileHandles(%s) error = %v", file, err)
		}
		if len(handles) != 1 || handles[0] != h1 {
			t.Errorf("FileHandles(%s) = %v, want [h1]", file, handles)
		}
	}

	// A second server advertising a known path is told to delete it.
	toDelete = ns.MergeRegistration([]dfspath.Path{
		path(t, "/a/b"),
		path(t, "/d"),
	}, h2)
	if len(toDelete) != 1 || toDelete[0].String() != "/a/b" {
		t.Fatalf("second registration toDelete = %v, want [/a/b]", toDelete)
	}

	handles, err := ns.FileHandles(path(t, "/d"))
	if err != nil || len(handles) != 1 || handles[0] != h2 {
		t.Errorf("FileHandles(/d) = %v, %v, want [h2]", handles, err)
	}
}

func TestMergeRegistrationBuildsAncestors(t *testing.T) {
	ns := newTestNamespace()

	toDelete := ns.MergeRegistration([]dfspath.Path{
		path(t, "/x/y/z/file"),
		path(t, "/"),
	}, h1)
	if len(toDelete) != 0 {
		t.Fatalf("toDelete = %v, want empty (root is silently ignored)", toDelete)
	}

	for _, dir := range []string{"/x", "/x/y", "/x/y/z"} {
		isDir, err := ns.IsDirectory(path(t, dir))
		if err != nil || !isDir {
			t.Errorf("IsDirectory(%s) = %v, %v, want true", dir, isDir, err)
		}
	}
}

// Invariant check over a mixed operation sequence: no path is both a
// file and a directory, every ancestor of a known path is a directory,
// and no file has an empty replica set.
func TestNamespaceInvariants(t *testing.T) {
	ns := newTestNamespace()
	ns.AddDirectory(path(t, "/a"))
	ns.AddFile(path(t, "/a/f"), h1)
	ns.AddFile(path(t, "/a/f"), h2)
	ns.MergeRegistration([]dfspath.Path{path(t, "/m/n/o")}, h2)
	ns.RemoveReplica(path(t, "/a/f"), h1)
	if _, err := ns.RemoveSubtree(path(t, "/m/n")); err != nil {
		t.Fatalf("RemoveSubtree() error = %v", err)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	for p := range ns.fileMap {
		if ns.directorySet[p] {
			t.Errorf("%s is both file and directory", p.String())
		}
		if len(ns.fileMap[p]) == 0 {
			t.Errorf("%s has an empty replica set", p.String())
		}
	}

	checkAncestors := func(p dfspath.Path) {
		parent, err := p.Parent()
		for err == nil {
			if !ns.directorySet[parent] {
				t.Errorf("ancestor %s of %s is not a directory", parent.String(), p.String())
			}
			parent, err = parent.Parent()
		}
	}
	for p := range ns.fileMap {
		checkAncestors(p)
	}
	for p := range ns.directorySet {
		if !p.IsRoot() {
			checkAncestors(p)
		}
	}

	var files []string
	for p := range ns.fileMap {
		files = append(files, p.String())
	}
	sort.Strings(files)
	want := []string{"/a/f"}
	if len(files) != len(want) || files[0] != want[0] {
		t.Errorf("remaining files = %v, want %v", files, want)
	}
}
