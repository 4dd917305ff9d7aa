// Package session owns the shared upload token for a LAN session.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// tokenBytes is the entropy of a generated token.
const tokenBytes = 16

// Info describes the current token without exposing it.
type Info struct {
	HasToken  bool       `json:"hasToken"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Gate generates and validates the single shared token.
type Gate struct {
	mu        sync.RWMutex
	token     string
	createdAt time.Time
}

// NewGate creates a gate without a token. Call Generate before serving.
func NewGate() *Gate {
	return &Gate{}
}

// Generate replaces the token with a fresh random one and returns it.
func (g *Gate) Generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	g.mu.Lock()
	g.token = token
	g.createdAt = time.Now().UTC()
	g.mu.Unlock()
	return token, nil
}

// Token returns the current token, or "" when none is set.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// Validate reports whether presented matches the configured token.
// It is false whenever no token is configured.
func (g *Gate) Validate(presented string) bool {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}

// Clear removes the token; every gated request fails until Generate.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.token = ""
	g.createdAt = time.Time{}
	g.mu.Unlock()
}

// Info reports whether a token exists and when it was created.
func (g *Gate) Info() Info {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.token == "" {
		return Info{}
	}
	at := g.createdAt
	return Info{HasToken: true, CreatedAt: &at}
}

// UploadURL builds the shareable page link http://host:port/?token=<token>.
func (g *Gate) UploadURL(host string, port int) string {
	u := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/",
	}
	if token := g.Token(); token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String()
}
