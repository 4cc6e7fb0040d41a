package session

import "sync"

// StatusHolder is a thread-safe cell for the current session status.
// The status feed writes it, the services read it. Starts as loading.
type StatusHolder struct {
	mu     sync.RWMutex
	status Status
}

func NewStatusHolder() *StatusHolder {
	return &StatusHolder{status: StatusLoading}
}

func (h *StatusHolder) Set(status Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
}

// CurrentStatus returns the last observed status.
func (h *StatusHolder) CurrentStatus() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
