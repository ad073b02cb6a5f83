package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/audit"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/blobstore"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/frame"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/gallery"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/provider"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/webhook"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/ws"
)

// Column widths of the enrollments table.
const (
	maxIdentityIDLen  = 64
	maxDisplayNameLen = 255
)

type EnrollmentRepositoryInterface interface {
	Upsert(ctx context.Context, e *domain.Enrollment) error
	Get(ctx context.Context, identityID string) (*domain.Enrollment, error)
	ListAll(ctx context.Context) ([]domain.Enrollment, error)
	Delete(ctx context.Context, identityID string) error
}

type AttendanceHistoryInterface interface {
	List(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
}

type GalleryLoaderInterface interface {
	Reload(ctx context.Context, h *gallery.Holder) (*gallery.Gallery, error)
}

// Notifier receives attendance and enrollment events for outbound delivery.
type Notifier interface {
	Publish(eventType string, data interface{})
}

// Broadcaster pushes events to connected display clients.
type Broadcaster interface {
	Broadcast(station string, eventType ws.EventType, data interface{})
}

// AttendanceService ties extraction, matching, the attendance ledger and
// enrollment management together.
type AttendanceService struct {
	enrollments EnrollmentRepositoryInterface
	history     AttendanceHistoryInterface
	images      blobstore.Store
	extractor   provider.Extractor
	processor   *frame.Processor
	holder      *gallery.Holder
	loader      GalleryLoaderInterface

	policy        frame.Policy
	location      *time.Location
	now           func() time.Time
	extractorName string
	audit         audit.Logger
	notifier      Notifier
	broadcaster   Broadcaster
	logger        *slog.Logger
}

func NewAttendanceService(
	enrollments EnrollmentRepositoryInterface,
	history AttendanceHistoryInterface,
	images blobstore.Store,
	extractor provider.Extractor,
	processor *frame.Processor,
	holder *gallery.Holder,
	loader GalleryLoaderInterface,
	logger *slog.Logger,
) *AttendanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceService{
		enrollments: enrollments,
		history:     history,
		images:      images,
		extractor:   extractor,
		processor:   processor,
		holder:      holder,
		loader:      loader,
		policy:      frame.PolicyClosest,
		location:    time.Local,
		now:         time.Now,
		audit:       &audit.NoOpLogger{},
		logger:      logger.With("component", "attendance_service"),
	}
}

func (s *AttendanceService) WithPolicy(p frame.Policy) *AttendanceService {
	s.policy = p
	return s
}

func (s *AttendanceService) WithLocation(loc *time.Location) *AttendanceService {
	if loc != nil {
		s.location = loc
	}
	return s
}

func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

func (s *AttendanceService) WithAudit(l audit.Logger, extractorName string) *AttendanceService {
	s.audit = l
	s.extractorName = extractorName
	return s
}

func (s *AttendanceService) WithNotifier(n Notifier) *AttendanceService {
	s.notifier = n
	return s
}

func (s *AttendanceService) WithBroadcaster(b Broadcaster) *AttendanceService {
	s.broadcaster = b
	return s
}

// GallerySize returns the number of identities currently matchable.
func (s *AttendanceService) GallerySize() int {
	return s.holder.Snapshot().Len()
}

// Recognize extracts every face in image and processes the frame.
func (s *AttendanceService) Recognize(ctx context.Context, image []byte, station string) (*domain.FrameResult, error) {
	faces, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.RecognizeEmbeddings(ctx, provider.Embeddings(faces), station)
}

// RecognizeEmbeddings processes a frame whose faces were already embedded.
// Individual faces may fail; the frame as a whole still succeeds.
func (s *AttendanceService) RecognizeEmbeddings(ctx context.Context, embeddings [][]float32, station string) (*domain.FrameResult, error) {
	now := s.now().In(s.location)

	// One snapshot for the whole frame.
	g := s.holder.Snapshot()
	faces := s.processor.Process(ctx, station, embeddings, g, now)

	result := &domain.FrameResult{
		Station:     station,
		Faces:       faces,
		Display:     frame.Display(faces, s.policy, now),
		ProcessedAt: now,
	}

	matched, recorded := 0, 0
	for _, f := range faces {
		if f.Matched {
			matched++
		}
		switch {
		case f.Recorded && f.Record != nil:
			recorded++
			s.logAudit(ctx, audit.Event{
				EventType:  audit.EventAttendanceRecorded,
				IdentityID: f.Record.IdentityID,
				Station:    station,
				Success:    true,
			})
			s.publish(webhook.EventAttendanceRecorded, f.Record)
			s.broadcast(station, ws.EventAttendanceRecorded, f.Record)
		case errors.Is(f.Err, domain.ErrLedgerWrite):
			s.logAudit(ctx, audit.Event{
				EventType:  audit.EventAttendanceFailed,
				IdentityID: f.IdentityID,
				Station:    station,
				Success:    false,
				Error:      f.Err.Error(),
			})
		}
	}

	if len(faces) > 0 {
		s.logAudit(ctx, audit.Event{
			EventType: audit.EventFrameProcessed,
			Station:   station,
			Success:   true,
			Metadata: map[string]string{
				"faces":     strconv.Itoa(len(faces)),
				"matched":   strconv.Itoa(matched),
				"recorded":  strconv.Itoa(recorded),
				"threshold": strconv.FormatFloat(s.processor.Threshold(), 'g', -1, 64),
			},
		})
	}

	s.broadcast(station, ws.EventFrameProcessed, result)
	return result, nil
}

// Enroll registers identityID from an image containing exactly one face,
// stores the snapshot and reloads the gallery. Re-enrolling an identity
// replaces its embedding and name.
func (s *AttendanceService) Enroll(ctx context.Context, identityID, displayName string, image []byte) (*domain.Enrollment, error) {
	identityID = strings.TrimSpace(identityID)
	displayName = strings.TrimSpace(displayName)
	if identityID == "" || displayName == "" {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("identity_id and display_name are required"))
	}
	if utf8.RuneCountInString(identityID) > maxIdentityIDLen {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("identity_id exceeds %d characters", maxIdentityIDLen))
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("display_name exceeds %d characters", maxDisplayNameLen))
	}

	faces, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	if len(faces) > 1 {
		return nil, domain.ErrMultipleFaces
	}

	embedding := faces[0].Embedding
	if dim := s.holder.Snapshot().Dimension(); dim != 0 && dim != len(embedding) {
		return nil, domain.ErrMalformedQuery.WithError(fmt.Errorf("embedding has %d dimensions, gallery uses %d", len(embedding), dim))
	}

	key := ImageKey(identityID)
	if err := s.images.Put(ctx, key, image); err != nil {
		return nil, fmt.Errorf("identity %s: store image: %w", identityID, err)
	}

	enrollment := &domain.Enrollment{
		IdentityID:  identityID,
		DisplayName: displayName,
		Embedding:   embedding,
		ImageKey:    key,
	}
	if err := s.enrollments.Upsert(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("identity %s: save enrollment: %w", identityID, err)
	}

	if _, err := s.ReloadGallery(ctx); err != nil {
		return nil, fmt.Errorf("identity %s: %w", identityID, err)
	}

	s.logAudit(ctx, audit.Event{
		EventType:  audit.EventEnrollmentRegistered,
		IdentityID: identityID,
		Extractor:  s.extractorName,
		Success:    true,
	})
	s.publish(webhook.EventEnrollmentCreated, enrollment)
	s.broadcast("", ws.EventEnrollmentChanged, enrollment)

	return enrollment, nil
}

// Unenroll removes identityID and its snapshot, then reloads the gallery.
// Attendance history is kept.
func (s *AttendanceService) Unenroll(ctx context.Context, identityID string) error {
	existing, err := s.enrollments.Get(ctx, identityID)
	if err != nil {
		return err
	}

	if err := s.enrollments.Delete(ctx, identityID); err != nil {
		return fmt.Errorf("identity %s: delete enrollment: %w", identityID, err)
	}

	if existing.ImageKey != "" {
		if err := s.images.Delete(ctx, existing.ImageKey); err != nil {
			s.logger.Warn("enrollment image not removed",
				"identity_id", identityID,
				"image_key", existing.ImageKey,
				"error", err,
			)
		}
	}

	if _, err := s.ReloadGallery(ctx); err != nil {
		return fmt.Errorf("identity %s: %w", identityID, err)
	}

	s.logAudit(ctx, audit.Event{
		EventType:  audit.EventEnrollmentDeleted,
		IdentityID: identityID,
		Success:    true,
	})
	s.publish(webhook.EventEnrollmentDeleted, map[string]string{"identity_id": identityID})
	s.broadcast("", ws.EventEnrollmentChanged, map[string]string{"identity_id": identityID})

	return nil
}

func (s *AttendanceService) ListEnrollments(ctx context.Context) ([]domain.Enrollment, error) {
	return s.enrollments.ListAll(ctx)
}

func (s *AttendanceService) History(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("to must not be before from"))
	}
	return s.history.List(ctx, filter)
}

// ReloadGallery rebuilds the gallery from the enrollment store and swaps it
// in. Frames already in flight keep the snapshot they started with.
func (s *AttendanceService) ReloadGallery(ctx context.Context) (int, error) {
	g, err := s.loader.Reload(ctx, s.holder)
	if err != nil {
		s.logAudit(ctx, audit.Event{
			EventType: audit.EventGalleryReloaded,
			Success:   false,
			Error:     err.Error(),
		})
		return 0, fmt.Errorf("reload gallery: %w", err)
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventGalleryReloaded,
		Success:   true,
		Metadata:  map[string]string{"entries": fmt.Sprint(g.Len())},
	})
	return g.Len(), nil
}

func (s *AttendanceService) extract(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}

	faces, err := s.extractor.Extract(ctx, image)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.ErrExtractorUnavailable.WithError(err)
	}
	return faces, nil
}

func (s *AttendanceService) logAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Log(ctx, event); err != nil {
		s.logger.Warn("audit event not written", "event_type", event.EventType, "error", err)
	}
}

func (s *AttendanceService) publish(eventType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(eventType, data)
	}
}

func (s *AttendanceService) broadcast(station string, eventType ws.EventType, data interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(station, eventType, data)
	}
}

// ImageKey returns the blob key for an identity's enrollment snapshot.
// Identifiers with characters outside [A-Za-z0-9_-] are sanitized and
// suffixed with a short hash so distinct ids never share a key.
func ImageKey(identityID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, identityID)

	if safe != identityID {
		sum := sha256.Sum256([]byte(identityID))
		safe += "-" + hex.EncodeToString(sum[:4])
	}
	return safe + ".jpg"
}
