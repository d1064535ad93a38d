package chat

import "sync"

// CancelToken stops one stream run. The consumer checks it before applying
// each fragment and also selects on Done so a stalled stream wakes up.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel is safe to call more than once
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

func (t *CancelToken) IsCancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
