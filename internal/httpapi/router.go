// Package httpapi exposes the relay over HTTP. The same handler serves the
// standalone server and the serverless function.
package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/shineum/mail-relay-lite/internal/relay"
)

// DefaultMaxBodySize bounds request bodies when Config.MaxBodySize is unset.
const DefaultMaxBodySize int64 = 25 << 20

const (
	pathRoot   = "/"
	pathHealth = "/api/health"
	pathSend   = "/api/send-codelist-email"
)

// Submitter is the part of *relay.Relay used by the handlers.
type Submitter interface {
	Submit(ctx context.Context, req relay.Request) relay.Result
}

// Config holds the dependencies of the HTTP handler.
type Config struct {
	// Relay processes send requests.
	Relay Submitter
	// MaxBodySize is the largest accepted request body in bytes.
	MaxBodySize int64
}

// NewHandler builds the routed handler wrapped in CORS, request ID,
// panic recovery and body size middleware.
func NewHandler(cfg Config) http.Handler {
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	h := &handlers{relay: cfg.Relay}

	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "Not found")
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}),
	}

	hr.GET(pathRoot, h.root)
	hr.GET(pathHealth, h.health)
	hr.POST(pathSend, h.sendEmail)

	routed := Chain(hr,
		middlewareRecoverer,
		middlewareBodyLimit(maxBody),
	)

	// Request IDs wrap CORS so preflight responses carry one too.
	return Chain(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:       []string{"*"},
		ExposedHeaders:       []string{HeaderRequestID},
		OptionsSuccessStatus: http.StatusOK,
	}).Handler(routed), middlewareRequestID)
}
