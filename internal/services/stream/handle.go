package stream

import (
	"log"
	"sync"
)

// The hub is constructed once at process start and injected into whatever
// needs it. The package-level handle exists for the few call sites that
// cannot take an injected dependency; touching it before Init is a
// programming error and is fatal, not recoverable.

var (
	handleMu   sync.Mutex
	defaultHub *Hub
)

// Init publishes the process-wide hub. Calling it twice is as fatal as
// calling Handle first: both indicate a broken startup sequence.
func Init(h *Hub) {
	handleMu.Lock()
	defer handleMu.Unlock()
	if defaultHub != nil {
		log.Fatal("stream: Init called twice")
	}
	if h == nil {
		log.Fatal("stream: Init with nil hub")
	}
	defaultHub = h
}

// Handle returns the process-wide hub, failing loudly before Init.
func Handle() *Hub {
	handleMu.Lock()
	defer handleMu.Unlock()
	if defaultHub == nil {
		log.Fatal("stream: hub accessed before initialization")
	}
	return defaultHub
}
