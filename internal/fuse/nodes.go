package fuse

import (
	"strings"
	"sync"
)

const rootID = 1

type node struct {
	id      uint64
	path    string // empty once the name is gone
	lookups uint64
}

// nodeTable maps kernel node ids to paths. The kernel holds a reference
// for every successful lookup and drops them with forget; a node leaves
// the table when its count reaches zero. The root is never forgotten.
type nodeTable struct {
	mu     sync.Mutex
	next   uint64
	byID   map[uint64]*node
	byPath map[string]*node
}

func newNodeTable() *nodeTable {
	root := &node{id: rootID, path: "/", lookups: 1}
	return &nodeTable{
		next:   rootID,
		byID:   map[uint64]*node{rootID: root},
		byPath: map[string]*node{"/": root},
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// path returns the current path of id.
func (t *nodeTable) path(id uint64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byID[id]
	if !ok || n.path == "" {
		return "", false
	}
	return n.path, true
}

// child returns the path of name inside the directory id.
func (t *nodeTable) child(id uint64, name string) (string, bool) {
	dir, ok := t.path(id)
	if !ok {
		return "", false
	}
	return joinPath(dir, name), true
}

// lookup takes one kernel reference on the node for p and returns its id.
func (t *nodeTable) lookup(p string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byPath[p]
	if !ok {
		t.next++
		n = &node{id: t.next, path: p}
		t.byID[n.id] = n
		t.byPath[p] = n
	}
	n.lookups++
	return n.id
}

// ino returns the id known for p, or 0.
func (t *nodeTable) ino(p string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.byPath[p]; ok {
		return n.id
	}
	return 0
}

func (t *nodeTable) forget(id, count uint64) {
	if id == rootID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.byID[id]
	if !ok {
		return
	}
	if count >= n.lookups {
		delete(t.byID, id)
		if n.path != "" && t.byPath[n.path] == n {
			delete(t.byPath, n.path)
		}
		return
	}
	n.lookups -= count
}

// remove detaches the name p. Its node keeps its id until forgotten but
// no longer resolves to a path.
func (t *nodeTable) remove(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unhash(p)
}

func (t *nodeTable) unhash(p string) {
	if n, ok := t.byPath[p]; ok {
		delete(t.byPath, p)
		n.path = ""
	}
}

// rename moves oldPath and everything below it to newPath. Whatever was
// known at newPath is detached first.
func (t *nodeTable) rename(oldPath, newPath string) {
	if oldPath == newPath {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.unhash(newPath)
	prefix := oldPath + "/"
	var moved []*node
	for p, n := range t.byPath {
		if p == oldPath || strings.HasPrefix(p, prefix) {
			moved = append(moved, n)
			delete(t.byPath, p)
		}
	}
	for _, n := range moved {
		n.path = newPath + strings.TrimPrefix(n.path, oldPath)
		t.byPath[n.path] = n
	}
}

func (t *nodeTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

type dirEntry struct {
	name string
	ino  uint64
	mode uint32
}

type dirHandle struct {
	mu      sync.Mutex
	fh      uint64 // file system handle from opendir
	path    string
	flags   uint32
	loaded  bool
	entries []dirEntry
}

// dirTable owns the directory streams the kernel has open.
type dirTable struct {
	mu      sync.Mutex
	next    uint64
	handles map[uint64]*dirHandle
}

func newDirTable() *dirTable {
	return &dirTable{handles: make(map[uint64]*dirHandle)}
}

func (d *dirTable) add(h *dirHandle) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.handles[d.next] = h
	return d.next
}

func (d *dirTable) get(id uint64) (*dirHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[id]
	return h, ok
}

func (d *dirTable) release(id uint64) (*dirHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[id]
	delete(d.handles, id)
	return h, ok
}
