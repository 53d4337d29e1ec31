package native

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handle is an opaque token standing in for a void* private-data
// pointer. The zero Handle refers to nothing.
type Handle uintptr

var handles struct {
	next  atomic.Uintptr
	table sync.Map // Handle -> any
}

// NewHandle registers v and returns a handle for it. The handle stays
// valid until Delete is called.
func NewHandle(v any) Handle {
	h := Handle(handles.next.Add(1))
	handles.table.Store(h, v)
	return h
}

// Value returns the value registered for h, or nil for the zero handle
// and for deleted handles.
func (h Handle) Value() any {
	if h == 0 {
		return nil
	}
	v, _ := handles.table.Load(h)
	return v
}

// Delete releases h. Deleting a handle twice panics.
func (h Handle) Delete() {
	if h == 0 {
		return
	}
	if _, ok := handles.table.LoadAndDelete(h); !ok {
		panic(fmt.Sprintf("native: handle %d deleted twice", uintptr(h)))
	}
}
