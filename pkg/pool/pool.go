// Package pool recycles the buffers live views render into.
package pool

import (
	"bytes"
	"sync"
)

// MaxRetained is the largest buffer capacity kept for reuse. A render
// bigger than this is left to the garbage collector.
const MaxRetained = 64 << 10

var buffers = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Get returns an empty buffer.
func Get() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put hands buf back. Callers must not touch buf afterwards.
func Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxRetained {
		return
	}
	buffers.Put(buf)
}
