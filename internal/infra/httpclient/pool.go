package httpclient

import (
	"net/http"
	"time"
)

// Pool hands out clients that share one transport, so the judge, embedder,
// and web-search adapters draw from a single connection pool.
type Pool struct {
	transport *http.Transport
}

// NewPool sizes the shared transport for maxConcurrent simultaneous
// upstream calls. The grading stage dominates traffic, so callers size
// this from the grader concurrency.
func NewPool(maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Pool{
		transport: &http.Transport{
			MaxIdleConns:        maxConcurrent * 4,
			MaxIdleConnsPerHost: maxConcurrent * 2,
			IdleConnTimeout:     120 * time.Second,
		},
	}
}

// Client creates an http.Client with the given timeout on the shared
// transport.
func (p *Pool) Client(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: p.transport,
	}
}
