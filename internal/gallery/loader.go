package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider"
)

const defaultConcurrency = 4

// Source lists every persisted enrollment in gallery order.
type Source interface {
	ListAll(ctx context.Context) ([]domain.Enrollment, error)
}

// ImageStore returns the enrollment snapshot stored under key.
type ImageStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Loader rebuilds galleries from the enrollment store. Enrollments persisted
// without an embedding are re-extracted from their snapshot image; any that
// fail are left out of the gallery.
type Loader struct {
	// mu serializes Reload so an older build never replaces a newer one.
	mu sync.Mutex

	source      Source
	images      ImageStore
	extractor   provider.Extractor
	concurrency int
	logger      *slog.Logger
}

// NewLoader creates a Loader. images and extractor may be nil, in which case
// enrollments without an embedding are simply skipped.
func NewLoader(source Source, images ImageStore, extractor provider.Extractor, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:      source,
		images:      images,
		extractor:   extractor,
		concurrency: defaultConcurrency,
		logger:      logger.With("component", "gallery_loader"),
	}
}

// WithConcurrency bounds how many images are re-extracted at once.
func (l *Loader) WithConcurrency(n int) *Loader {
	if n > 0 {
		l.concurrency = n
	}
	return l
}

// Build reads all enrollments and returns a fresh gallery.
func (l *Loader) Build(ctx context.Context) (*Gallery, error) {
	enrollments, err := l.source.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	if err := l.recoverEmbeddings(ctx, enrollments); err != nil {
		return nil, err
	}

	return Load(enrollments), nil
}

// Reload builds a gallery and installs it into h. Concurrent reloads run one
// at a time, each reading the store after the previous one swapped.
func (l *Loader) Reload(ctx context.Context, h *Holder) (*Gallery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()

	g, err := l.Build(ctx)
	if err != nil {
		return nil, err
	}
	h.Swap(g)

	l.logger.Info("gallery reloaded",
		slog.Int("entries", g.Len()),
		slog.Int("dimension", g.Dimension()),
		slog.Duration("took", time.Since(start)),
	)
	return g, nil
}

func (l *Loader) recoverEmbeddings(ctx context.Context, enrollments []domain.Enrollment) error {
	if l.images == nil || l.extractor == nil {
		return nil
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(l.concurrency)

	for i := range enrollments {
		e := &enrollments[i]
		if e.HasEmbedding() || e.ImageKey == "" {
			continue
		}

		grp.Go(func() error {
			embedding, err := l.extract(gctx, e.ImageKey)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.logger.Warn("skipping enrollment without usable face",
					slog.String("identity_id", e.IdentityID),
					slog.Any("error", err),
				)
				return nil
			}
			e.Embedding = embedding
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return fmt.Errorf("recover embeddings: %w", err)
	}
	return nil
}

func (l *Loader) extract(ctx context.Context, key string) ([]float32, error) {
	image, err := l.images.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", key, err)
	}

	faces, err := l.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	return faces[0].Embedding, nil
}
