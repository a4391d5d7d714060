package handler

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"

	"github.com/rcarmo/colorpick/internal/codec"
	"github.com/rcarmo/colorpick/internal/sampler"
)

// readFrame checks the requested dimensions against the sampler limits and
// then reads the raw frame body.
func (h *Handler) readFrame(w http.ResponseWriter, r *http.Request) (frame []byte, width, height int, err error) {
	width, height, err = dimensions(r.URL.Query())
	if err != nil {
		return nil, 0, 0, err
	}

	if err = h.sampler.CheckLimits(width, height); err != nil {
		return nil, 0, 0, err
	}

	frame, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxFrameBytes))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read frame: %w", err)
	}

	return frame, width, height, nil
}

// Sample decodes the posted frame and returns the color at ?x=&y=.
func (h *Handler) Sample(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	x, err := intParam(q, "x")
	if err != nil {
		writeError(w, err)
		return
	}

	y, err := intParam(q, "y")
	if err != nil {
		writeError(w, err)
		return
	}

	frame, width, height, err := h.readFrame(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	color, err := h.sampler.Sample(frame, width, height, x, y)
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.Debug("sample %dx%d at (%d,%d): %s", width, height, x, y, color.Hex)
	writeJSON(w, http.StatusOK, color)
}

// Preview decodes the posted frame and returns it as a PNG image.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	frame, width, height, err := h.readFrame(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := h.sampler.Decode(frame, width, height)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := writePNG(w, f); err != nil {
		h.log.Error("encode preview: %v", err)
	}
}

func writePNG(w http.ResponseWriter, f *sampler.Frame) error {
	img, err := codec.ToImage(f.Pixels, f.Width, f.Height)
	if err != nil {
		writeError(w, err)
		return err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, err)
		return err
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}
