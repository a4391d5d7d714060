package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/colorpick/internal/codec"
	"github.com/rcarmo/colorpick/internal/config"
	"github.com/rcarmo/colorpick/internal/logging"
	"github.com/rcarmo/colorpick/internal/sampler"
)

// whiteBlackFrame is a 2x2 NV21 frame with neutral chroma: the left column
// is black and the right column white.
var whiteBlackFrame = []byte{0, 255, 0, 255, 128, 128}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "8080"},
		Frame:    config.FrameConfig{Format: "nv21", MaxWidth: 4, MaxHeight: 4},
		Security: config.SecurityConfig{MaxConnections: 2},
		Logging:  config.LoggingConfig{Level: "debug", Format: "text"},
	}
}

func newTestHandler(t *testing.T, cfg *config.Config) (*Handler, *httptest.Server) {
	t.Helper()

	log := logging.New(io.Discard, logging.LevelDebug)
	s, err := sampler.New(cfg.Frame, log)
	require.NoError(t, err)

	h := New(cfg, s, log)
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return h, srv
}

func post(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSampleEndpoint(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	resp := post(t, srv.URL+"/sample?width=2&height=2&x=1&y=0", whiteBlackFrame)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var color sampler.Color
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&color))
	assert.Equal(t, sampler.Color{X: 1, Y: 0, ARGB: 0xFFFFFFFF, R: 255, G: 255, B: 255, Hex: "ffffffff"}, color)
}

func TestSampleEndpoint_Errors(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	tests := []struct {
		name   string
		query  string
		body   []byte
		status int
	}{
		{"missing x", "width=2&height=2&y=0", whiteBlackFrame, http.StatusBadRequest},
		{"non-numeric y", "width=2&height=2&x=0&y=top", whiteBlackFrame, http.StatusBadRequest},
		{"missing width", "height=2&x=0&y=0", whiteBlackFrame, http.StatusBadRequest},
		{"odd width", "width=3&height=2&x=0&y=0", make([]byte, 9), http.StatusBadRequest},
		{"short frame", "width=2&height=2&x=0&y=0", whiteBlackFrame[:4], http.StatusBadRequest},
		{"out of bounds", "width=2&height=2&x=2&y=0", whiteBlackFrame, http.StatusBadRequest},
		{"above max dimensions", "width=8&height=8&x=0&y=0", make([]byte, 96), http.StatusRequestEntityTooLarge},
		{"body above max frame size", "width=2&height=2&x=0&y=0", make([]byte, 100), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/sample?"+tt.query, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var e errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestSampleEndpoint_MethodNotAllowed(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	resp, err := http.Get(srv.URL + "/sample?width=2&height=2&x=0&y=0")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPreviewEndpoint(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	resp := post(t, srv.URL+"/preview?width=2&height=2", whiteBlackFrame)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())

	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b, a})

	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0, 0, 0}, []uint32{r, g, b})
}

func TestPreviewEndpoint_ShortFrame(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	resp := post(t, srv.URL+"/preview?width=4&height=4", make([]byte, 16))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	_, srv := newTestHandler(t, testConfig())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStatusForError(t *testing.T) {
	_, numErr := strconv.Atoi("x")

	tests := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("wrapped: %w", sampler.ErrFrameTooLarge), http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{codec.ErrInvalidDimensions, http.StatusBadRequest},
		{codec.ErrBufferTooSmall, http.StatusBadRequest},
		{codec.ErrOutOfBounds, http.StatusBadRequest},
		{errMissingParam, http.StatusBadRequest},
		{numErr, http.StatusBadRequest},
		{codec.ErrUnsupportedFormat, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusForError(tt.err))
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		host    string
		want    bool
	}{
		{"no origin header", "", nil, "example.com", true},
		{"same host without list", "http://localhost:8080", nil, "localhost:8080", true},
		{"other host without list", "http://evil.example", nil, "localhost:8080", false},
		{"exact list match", "https://app.example", []string{"https://app.example"}, "api.example", true},
		{"scheme-less list entry", "https://app.example", []string{"app.example"}, "api.example", true},
		{"trailing slash in list", "https://app.example", []string{"https://app.example/"}, "api.example", true},
		{"not in list", "https://evil.example", []string{"https://app.example", " "}, "api.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedOrigin(tt.origin, tt.allowed, tt.host))
		})
	}
}
