package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// ProxyConfig selects outbound proxies for model API calls.
// Empty fields fall back to HTTP_PROXY, HTTPS_PROXY and NO_PROXY.
type ProxyConfig struct {
	HTTP  string
	HTTPS string
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(cfg ProxyConfig) (func(*http.Request) (*url.URL, error), error) {
	if cfg.HTTP == "" && cfg.HTTPS == "" {
		return http.ProxyFromEnvironment, nil
	}

	httpProxy, err := parseProxy(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxy(cfg.HTTPS)
	if err != nil {
		return nil, err
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != nil {
			return httpsProxy, nil
		}
		if httpProxy != nil {
			return httpProxy, nil
		}
		return http.ProxyFromEnvironment(req)
	}, nil
}

// NewHTTPClient returns a client whose transport honours cfg.
// Deadlines come from request contexts, so the client sets none.
func NewHTTPClient(cfg ProxyConfig) (*http.Client, error) {
	proxy, err := NewProxyFunc(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	return &http.Client{Transport: transport}, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", raw)
	}
	return u, nil
}
