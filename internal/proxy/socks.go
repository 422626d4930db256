// Package proxy builds HTTP clients that tunnel through a SOCKS5 proxy, for
// reaching transcription APIs from networks where they are blocked.
package proxy

import (
	"fmt"
	"net/http"
	"time"

	xproxy "golang.org/x/net/proxy"
)

// NewSocksClient returns an http.Client whose connections go through the
// SOCKS5 proxy at addr (host:port). An empty addr returns a direct client.
func NewSocksClient(addr string) (*http.Client, error) {
	if addr == "" {
		return &http.Client{Timeout: 120 * time.Second}, nil
	}
	dialer, err := xproxy.SOCKS5("tcp", addr, nil, xproxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", addr, err)
	}
	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			Dial: dialer.Dial,
		},
	}, nil
}
