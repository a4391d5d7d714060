// Package handler exposes the sampler over HTTP and WebSocket.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/colorpick/internal/codec"
	"github.com/rcarmo/colorpick/internal/config"
	"github.com/rcarmo/colorpick/internal/logging"
	"github.com/rcarmo/colorpick/internal/sampler"
)

const (
	webSocketReadBufferSize  = 64 * 1024
	webSocketWriteBufferSize = 4096

	// controlSlack covers text sample requests sharing the frame read limit.
	controlSlack = 1024
)

var errMissingParam = errors.New("missing query parameter")

// Handler serves frame sampling endpoints. The zero value is not usable; use New.
type Handler struct {
	sampler        *sampler.Sampler
	log            *logging.Logger
	allowedOrigins []string
	maxConnections int32
	maxFrameBytes  int64
	active         atomic.Int32
	upgrader       websocket.Upgrader
}

// New builds a Handler using the limits of cfg.
func New(cfg *config.Config, s *sampler.Sampler, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Default()
	}

	h := &Handler{
		sampler:        s,
		log:            log.With("handler"),
		allowedOrigins: cfg.Security.AllowedOrigins,
		maxConnections: int32(cfg.Security.MaxConnections), // #nosec G115
		maxFrameBytes:  int64(cfg.Frame.MaxFrameBytes()),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return IsAllowedOrigin(r.Header.Get("Origin"), h.allowedOrigins, r.Host)
		},
	}

	return h
}

// Register attaches all endpoints to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sample", h.Sample)
	mux.HandleFunc("POST /preview", h.Preview)
	mux.HandleFunc("GET /stream", h.Stream)
	mux.HandleFunc("GET /healthz", h.Health)
}

// ActiveStreams reports the number of open WebSocket sessions.
func (h *Handler) ActiveStreams() int {
	return int(h.active.Load())
}

// Health answers liveness probes.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
}

// statusForError maps decode and request errors to HTTP status codes.
func statusForError(err error) int {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, sampler.ErrFrameTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMissingParam),
		errors.Is(err, strconv.ErrSyntax),
		errors.Is(err, strconv.ErrRange),
		errors.Is(err, codec.ErrInvalidDimensions),
		errors.Is(err, codec.ErrBufferTooSmall),
		errors.Is(err, codec.ErrOutOfBounds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", errMissingParam, name)
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", name, err)
	}

	return v, nil
}

func dimensions(q url.Values) (width, height int, err error) {
	if width, err = intParam(q, "width"); err != nil {
		return 0, 0, err
	}
	if height, err = intParam(q, "height"); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// IsAllowedOrigin accepts requests without an Origin header (non-browser
// camera clients), any listed origin, or a same-host origin when no list is
// configured.
func IsAllowedOrigin(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return true
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	if len(allowedOrigins) == 0 {
		return normalized == host
	}

	for _, entry := range allowedOrigins {
		candidate := strings.TrimSuffix(strings.TrimSpace(entry), "/")
		if candidate == "" {
			continue
		}
		if candidate == origin || candidate == normalized {
			return true
		}
		if strings.TrimPrefix(strings.TrimPrefix(candidate, "http://"), "https://") == normalized {
			return true
		}
	}

	return false
}
