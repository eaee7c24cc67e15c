package schnitz

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	SignatureHeader string = "x-signature"
	HotkeyHeader    string = "x-hotkey"
	MessageHeader   string = "x-message"

	// Server defaults
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8000
	DefaultBodyLimit  = 4 * 1024 * 1024 // 4MB

	// Client defaults
	DefaultClientTimeout = 65 * time.Second

	authLocalsKey = "schnitz.auth"
)

// Server represents the peer RPC server
type Server struct {
	App    *fiber.App
	config *ServerConfig
}

type ServerConfig struct {
	Host      string
	Port      int
	BodyLimit int
	// SelfKey, when set, rejects requests signed for another key.
	SelfKey string
	// MaxMessageAge, when positive, rejects auth messages older than this.
	MaxMessageAge time.Duration
}

// StdResponse represents the standardized response structure
type StdResponse[T any] struct {
	Body  T       `json:"body"`
	Error *string `json:"error,omitempty"`
}

// AuthParams holds authentication parameters for requests
type AuthParams struct {
	Hotkey    string
	Message   string
	Signature string
}

// RouterHandler handles a decoded request and returns the response body.
// Returning a *fiber.Error selects the HTTP status.
type RouterHandler[Req, Resp any] func(*fiber.Ctx, Req) (Resp, error)

// RemoteError is a failure reported by the peer.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("peer responded %d: %s", e.StatusCode, e.Message)
}
