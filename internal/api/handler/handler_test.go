package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// MockAttendanceService is a mock implementation of every service interface
// the handlers depend on
type MockAttendanceService struct {
	mock.Mock
}

func (m *MockAttendanceService) Enroll(ctx context.Context, identityID, displayName string, image []byte) (*domain.Enrollment, error) {
	args := m.Called(ctx, identityID, displayName, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Enrollment), args.Error(1)
}

func (m *MockAttendanceService) Unenroll(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockAttendanceService) ListEnrollments(ctx context.Context) ([]domain.Enrollment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Enrollment), args.Error(1)
}

func (m *MockAttendanceService) ReloadGallery(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAttendanceService) Recognize(ctx context.Context, image []byte, station string) (*domain.FrameResult, error) {
	args := m.Called(ctx, image, station)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FrameResult), args.Error(1)
}

func (m *MockAttendanceService) RecognizeEmbeddings(ctx context.Context, embeddings [][]float32, station string) (*domain.FrameResult, error) {
	args := m.Called(ctx, embeddings, station)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FrameResult), args.Error(1)
}

func (m *MockAttendanceService) History(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceRecord), args.Error(1)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
	})
}

// createMultipartRequest builds a form with the given text fields and an
// optional image part.
func createMultipartRequest(fields map[string]string, imageContent []byte, contentType string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="frame.jpg"`)
		h.Set("Content-Type", contentType)

		part, _ := writer.CreatePart(h)
		_, _ = part.Write(imageContent)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType()
}
