// Package transport implements a pool of per-endpoint HTTP
// clients shared across invocations, configured per protocol — HTTP/2
// cleartext multiplexing for Dubbo3/Triple, pooled HTTP/1.1 keep-alive
// connections for Fusen and SpringCloud.
package transport

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"gateway/internal/rpc"
)

// Config tunes the connection pool a Pool hands out per endpoint.
type Config struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration
}

// DefaultConfig returns the pool defaults the gateway ships with.
func DefaultConfig() Config {
	return Config{
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// Pool hands out a shared *http.Client per (protocol, endpoint) pair, so
// repeated invocations against the same backend reuse its connections
// instead of dialing fresh ones.
type Pool struct {
	cfg Config

	mu       sync.RWMutex
	h2cByKey map[string]*http.Client
	h1ByKey  map[string]*http.Client
}

// NewPool returns a Pool tuned by cfg.
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg, h2cByKey: make(map[string]*http.Client), h1ByKey: make(map[string]*http.Client)}
}

// Client returns the shared client for protocol against baseURL, building
// and caching one on first use.
func (p *Pool) Client(protocol rpc.Protocol, baseURL string) *http.Client {
	if protocol == rpc.ProtocolDubbo {
		return p.h2cClient(baseURL)
	}
	return p.h1Client(baseURL)
}

// h2cClient returns a client that multiplexes all requests to baseURL over
// a single HTTP/2 cleartext connection, the Dubbo3/Triple transport.
func (p *Pool) h2cClient(baseURL string) *http.Client {
	p.mu.RLock()
	client, ok := p.h2cByKey[baseURL]
	p.mu.RUnlock()
	if ok {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok = p.h2cByKey[baseURL]; ok {
		return client
	}

	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout, KeepAlive: p.cfg.KeepAlive}
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ interface{}) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
	client = &http.Client{Transport: transport}
	p.h2cByKey[baseURL] = client
	return client
}

// h1Client returns a pooled keep-alive HTTP/1.1 client for baseURL, the
// Fusen/SpringCloud transport.
func (p *Pool) h1Client(baseURL string) *http.Client {
	p.mu.RLock()
	client, ok := p.h1ByKey[baseURL]
	p.mu.RUnlock()
	if ok {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok = p.h1ByKey[baseURL]; ok {
		return client
	}

	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout, KeepAlive: p.cfg.KeepAlive}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          p.cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   p.cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.cfg.IdleConnTimeout,
		ResponseHeaderTimeout: p.cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     false,
	}
	client = &http.Client{Transport: transport}
	p.h1ByKey[baseURL] = client
	return client
}

// CloseIdleConnections releases idle connections across every client the
// pool has handed out.
func (p *Pool) CloseIdleConnections() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.h2cByKey {
		c.CloseIdleConnections()
	}
	for _, c := range p.h1ByKey {
		c.CloseIdleConnections()
	}
}
