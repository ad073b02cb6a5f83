// Package kiosk drives recognition from a camera that exposes a snapshot
// URL, one frame at a time.
package kiosk

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

const maxSnapshotBytes = 10 << 20

// Source yields the current camera frame as encoded image bytes.
type Source interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Recognizer processes one frame.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, station string) (*domain.FrameResult, error)
}

// HTTPSource fetches frames with a GET against a snapshot endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Snapshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: camera returned status %d", resp.StatusCode)
	}

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(image) > maxSnapshotBytes {
		return nil, fmt.Errorf("read snapshot: larger than %d bytes", maxSnapshotBytes)
	}
	return image, nil
}

// Worker captures and recognizes a frame every interval. A frame is fully
// processed before the next capture starts; ticks that fire meanwhile are
// dropped.
type Worker struct {
	source     Source
	recognizer Recognizer
	station    string
	interval   time.Duration
	logger     *slog.Logger

	failures int
	last     *domain.Display
}

func NewWorker(source Source, recognizer Recognizer, station string, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		source:     source,
		recognizer: recognizer,
		station:    station,
		interval:   interval,
		logger:     logger.With("component", "kiosk", "station", station),
	}
}

// Run starts the capture loop
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("kiosk started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("kiosk stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	image, err := w.source.Snapshot(ctx)
	if err == nil {
		var result *domain.FrameResult
		result, err = w.recognizer.Recognize(ctx, image, w.station)
		if err == nil {
			w.observe(result)
			return
		}
	}

	if ctx.Err() != nil {
		return
	}

	w.failures++
	// Log the first failure and then every 60th so a dead camera does not
	// flood the log.
	if w.failures == 1 || w.failures%60 == 0 {
		w.logger.Warn("frame skipped", "consecutive_failures", w.failures, "error", err)
	}
}

func (w *Worker) observe(result *domain.FrameResult) {
	if w.failures > 0 {
		w.logger.Info("camera recovered", "after_failures", w.failures)
		w.failures = 0
	}

	d := result.Display
	if w.last == nil || w.last.IdentityID != d.IdentityID {
		w.logger.Info("display changed",
			"identity_id", d.IdentityID,
			"display_name", d.DisplayName,
			"faces", len(result.Faces),
		)
	}
	w.last = &d
}
