package publisher

import "sync"

// Fake records payloads for tests and for dry runs.
type Fake struct {
	mu       sync.Mutex
	payloads [][]byte
	// PublishError, if set, is returned by Publish.
	PublishError error
	closed       bool
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Publish(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Payloads returns copies of everything published.
func (f *Fake) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
