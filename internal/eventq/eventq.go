// Package eventq provides small channel send helpers for event plumbing.
package eventq

// Offer performs a non-blocking send.
// It returns true when the value was sent and false when the channel is full
// or already closed.
func Offer[T any](ch chan<- T, value T) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}
