// Package network builds the outbound HTTP clients. Each identity session
// gets a client whose TLS surface matches its fingerprint family and whose
// transport decompresses responses transparently.
package network

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/fingerprint"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Defaults tuned for low-volume polite fetching. The pool is small because
// the limiter keeps concurrency near one.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 15 * time.Second

	DefaultMaxIdleConns        = 10
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 30 * time.Second
)

// ClientConfig holds the knobs for one client build.
type ClientConfig struct {
	RequestTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int

	IgnoreTLSErrors bool
	ForceHTTP2      bool

	// TLSProfile shapes the handshake to match the identity's browser
	// family. Nil means the stdlib defaults.
	TLSProfile *fingerprint.TLSDescriptor

	// ProxyURL routes the transport through a proxy when non-nil.
	ProxyURL *url.URL

	Logger *zap.Logger
}

// Client wraps the standard http.Client. Embedding keeps Do, Get and the
// rest available directly.
type Client struct {
	*http.Client
}

// NewClientConfig maps the application network settings onto a ClientConfig.
func NewClientConfig(netCfg config.NetworkConfig, logger *zap.Logger) *ClientConfig {
	timeout := netCfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &ClientConfig{
		RequestTimeout:        timeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IgnoreTLSErrors:       netCfg.IgnoreTLSErrors,
		ForceHTTP2:            netCfg.ForceHTTP2,
		Logger:                logger,
	}
}

// NewHTTPTransport creates and configures an http.Transport from cfg.
func NewHTTPTransport(cfg *ClientConfig) *http.Transport {
	if cfg == nil {
		cfg = NewClientConfig(config.NetworkConfig{}, nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	tlsConfig := configureTLS(cfg)

	dialer := &net.Dialer{
		Timeout:   DefaultDialTimeout,
		KeepAlive: DefaultKeepAliveInterval,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
		// The decoding transport negotiates encodings itself.
		DisableCompression: true,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}

	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			cfg.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else if tlsConfig != nil && len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{"http/1.1"}
	}

	return transport
}

// NewClient builds a client with the decoding transport layered over the
// configured one. Redirects are followed up to the stdlib default; the
// target site uses them for slug canonicalization.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = NewClientConfig(config.NetworkConfig{}, nil)
	}
	transport := NewHTTPTransport(cfg)
	return &Client{
		Client: &http.Client{
			Transport: newDecodingTransport(transport),
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// configureTLS shapes the handshake. A fingerprint TLS profile pins the
// cipher order to the identity's browser family.
func configureTLS(cfg *ClientConfig) *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
	}
	if p := cfg.TLSProfile; p != nil {
		tlsConfig.MinVersion = p.MinVersion
		tlsConfig.CipherSuites = append([]uint16(nil), p.CipherSuites...)
	}
	tlsConfig.InsecureSkipVerify = cfg.IgnoreTLSErrors
	return tlsConfig
}
