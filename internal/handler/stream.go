package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rcarmo/colorpick/internal/logging"
	"github.com/rcarmo/colorpick/internal/sampler"
)

var errNoFrame = errors.New("no frame received yet")

// Message types sent to stream clients.
const (
	MessageSession = "session"
	MessageColor   = "color"
	MessageError   = "error"
)

// streamMessage is the JSON envelope of every server-to-client message.
type streamMessage struct {
	Type   string         `json:"type"`
	ID     string         `json:"id,omitempty"`
	Width  int            `json:"width,omitempty"`
	Height int            `json:"height,omitempty"`
	Format string         `json:"format,omitempty"`
	Color  *sampler.Color `json:"color,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type sampleRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// Stream upgrades to a WebSocket session. Binary messages carry raw frames of
// the ?width=&height= given at connect time; text messages carry
// {"x":..,"y":..} sample requests answered against the latest good frame.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	width, height, err := dimensions(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	frame, err := h.sampler.NewFrame(width, height)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.active.Add(1) > h.maxConnections {
		h.active.Add(-1)
		http.Error(w, "too many streams", http.StatusServiceUnavailable)
		return
	}
	defer h.active.Add(-1)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade websocket: %v", err)
		return
	}

	defer func() {
		if err := conn.Close(); err != nil {
			h.log.Debug("error closing websocket: %v", err)
		}
	}()

	id := uuid.NewString()
	s := &session{
		id:      id,
		conn:    conn,
		sampler: h.sampler,
		frame:   frame,
		log:     h.log.With("stream").With(id[:8]),
	}

	conn.SetReadLimit(int64(len(frame.Pixels))*3/2 + controlSlack)
	s.run()
}

// session is owned by the goroutine running Stream; only it reads or writes
// the connection and the current frame.
type session struct {
	id       string
	conn     *websocket.Conn
	sampler  *sampler.Sampler
	frame    *sampler.Frame
	hasFrame bool
	frames   int
	log      *logging.Logger
}

func (s *session) run() {
	s.log.Info("session started %dx%d %s", s.frame.Width, s.frame.Height, s.sampler.Format())

	err := s.send(streamMessage{
		Type:   MessageSession,
		ID:     s.id,
		Width:  s.frame.Width,
		Height: s.frame.Height,
		Format: s.sampler.Format().String(),
	})
	if err != nil {
		s.log.Warn("send session: %v", err)
		return
	}

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("read: %v", err)
			}
			s.log.Info("session ended after %d frames", s.frames)
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			err = s.handleFrame(data)
		case websocket.TextMessage:
			err = s.handleSample(data)
		}

		if err != nil {
			s.log.Warn("send: %v", err)
			return
		}
	}
}

// handleFrame replaces the current frame. A frame that fails to decode is
// reported and dropped; the previous frame stays current.
func (s *session) handleFrame(data []byte) error {
	if err := s.sampler.DecodeInto(s.frame, data); err != nil {
		return s.sendError(fmt.Errorf("frame %d: %w", s.frames+1, err))
	}

	s.frames++
	s.hasFrame = true

	return nil
}

func (s *session) handleSample(data []byte) error {
	var req sampleRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return s.sendError(fmt.Errorf("decode sample request: %w", err))
	}
	if req.X == nil || req.Y == nil {
		return s.sendError(fmt.Errorf("%w: x and y are required", errMissingParam))
	}
	if !s.hasFrame {
		return s.sendError(errNoFrame)
	}

	color, err := s.frame.At(*req.X, *req.Y)
	if err != nil {
		return s.sendError(err)
	}

	s.log.Debug("sample (%d,%d): %s", color.X, color.Y, color.Hex)

	return s.send(streamMessage{Type: MessageColor, Color: &color})
}

func (s *session) sendError(err error) error {
	return s.send(streamMessage{Type: MessageError, Error: err.Error()})
}

func (s *session) send(msg streamMessage) error {
	return s.conn.WriteJSON(msg)
}
