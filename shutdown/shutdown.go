// Package shutdown runs registered cleanup hooks when the harness is interrupted, so an
// aborted suite does not leave results artifacts behind.
package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

// PriorityArtifacts orders the removal of results artifacts.
const PriorityArtifacts = 200

type hook struct {
	id       int
	label    string
	priority int
	fn       func()
	index    int
}

type hookHeap []*hook

func (h hookHeap) Len() int { return len(h) }
func (h hookHeap) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].id < h[j].id
	}
	return h[i].priority < h[j].priority
}
func (h hookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *hookHeap) Push(x any) {
	item := x.(*hook)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *hookHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

var (
	hooks    hookHeap
	hooksMux sync.Mutex
	nextID   int
	exit     = os.Exit
	stderr   io.Writer = os.Stderr
)

// AddHookWithPriority registers fn; lower priorities run first, equal priorities run in
// registration order. The returned func unregisters the hook and is safe to call twice.
func AddHookWithPriority(label string, priority int, fn func()) (remove func()) {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	nextID++
	h := &hook{id: nextID, label: label, priority: priority, fn: fn}
	heap.Push(&hooks, h)

	return func() {
		hooksMux.Lock()
		defer hooksMux.Unlock()
		if h.index >= 0 && h.index < len(hooks) && hooks[h.index] == h {
			heap.Remove(&hooks, h.index)
		}
	}
}

// Shutdown runs and clears every registered hook. A panicking hook does not stop the rest.
func Shutdown() {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	if len(hooks) == 0 {
		return
	}

	logger.Debugf("Executing %d shutdown hooks", len(hooks))
	for hooks.Len() > 0 {
		h := heap.Pop(&hooks).(*hook)
		logger.Debugf("Executing shutdown hook: %s (priority=%d)", h.label, h.priority)

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic in shutdown hook %s: %v", h.label, r)
				}
			}()
			h.fn()
		}()
	}
}

// NotifyContext returns a context that is cancelled on the first SIGINT/SIGTERM, letting
// the current fixture finish its teardown and cleanup. A second signal runs the hooks and
// exits immediately. Call stop to release the signal handler.
func NotifyContext(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			_, _ = fmt.Fprintf(stderr, "\nReceived %s - stopping after the current fixture...\n", sig)
			_, _ = fmt.Fprintf(stderr, "   Press Ctrl+C again to force immediate exit\n\n")
			cancel()
		case <-done:
			return
		}

		select {
		case <-sigChan:
			_, _ = fmt.Fprintf(stderr, "\nForce exit\n")
			Shutdown()
			exit(130)
		case <-done:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
