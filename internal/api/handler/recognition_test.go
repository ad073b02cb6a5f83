package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

func sampleFrame(station string) *domain.FrameResult {
	now := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	return &domain.FrameResult{
		Station: station,
		Faces: []domain.FaceResult{
			{
				MatchResult: domain.MatchResult{Matched: true, IdentityID: "emp-1", DisplayName: "Alice", Distance: 0.3},
				Recorded:    true,
			},
			{
				MatchResult: domain.MatchResult{Matched: true, IdentityID: "emp-2", DisplayName: "Bob", Distance: 0.2},
				Err:         domain.ErrLedgerWrite.WithError(errors.New("pq: connection reset")),
			},
		},
		Display:     domain.Display{IdentityID: "emp-2", DisplayName: "Bob", Timestamp: now},
		ProcessedAt: now,
	}
}

func TestRecognitionHandler_Recognize(t *testing.T) {
	image := []byte("frame-bytes")

	t.Run("partial success is still 200", func(t *testing.T) {
		svc := &MockAttendanceService{}
		svc.On("Recognize", mock.Anything, image, "front-door").Return(sampleFrame("front-door"), nil)

		app := newTestApp()
		app.Post("/v1/recognitions", NewRecognitionHandler(svc, "main", testLogger()).Recognize)

		body, ct := createMultipartRequest(map[string]string{"station": "front-door"}, image, "image/jpeg")
		req := httptest.NewRequest("POST", "/v1/recognitions", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got struct {
			Station string `json:"station"`
			Faces   []struct {
				IdentityID string `json:"identity_id"`
				Recorded   bool   `json:"recorded"`
				Error      string `json:"error"`
			} `json:"faces"`
			Display domain.Display `json:"display"`
		}
		raw, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(raw, &got))

		assert.Equal(t, "front-door", got.Station)
		require.Len(t, got.Faces, 2)
		assert.True(t, got.Faces[0].Recorded)
		assert.Empty(t, got.Faces[0].Error)
		assert.Equal(t, domain.ErrLedgerWrite.Message, got.Faces[1].Error)
		assert.NotContains(t, string(raw), "connection reset")
		assert.Equal(t, "Bob", got.Display.DisplayName)
	})

	t.Run("falls back to default station", func(t *testing.T) {
		svc := &MockAttendanceService{}
		svc.On("Recognize", mock.Anything, image, "main").Return(sampleFrame("main"), nil)

		app := newTestApp()
		app.Post("/v1/recognitions", NewRecognitionHandler(svc, "main", testLogger()).Recognize)

		body, ct := createMultipartRequest(nil, image, "image/jpeg")
		req := httptest.NewRequest("POST", "/v1/recognitions", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	t.Run("extractor unavailable", func(t *testing.T) {
		svc := &MockAttendanceService{}
		svc.On("Recognize", mock.Anything, image, "main").Return(nil, domain.ErrExtractorUnavailable)

		app := newTestApp()
		app.Post("/v1/recognitions", NewRecognitionHandler(svc, "main", testLogger()).Recognize)

		body, ct := createMultipartRequest(nil, image, "image/jpeg")
		req := httptest.NewRequest("POST", "/v1/recognitions", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
	})
}

func TestRecognitionHandler_RecognizeEmbeddings(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockAttendanceService)
		expectedStatus int
	}{
		{
			name: "valid embeddings",
			body: `{"station":"lab","embeddings":[[0.1,0.2],[0.3,0.4]]}`,
			setupMock: func(m *MockAttendanceService) {
				m.On("RecognizeEmbeddings", mock.Anything, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, "lab").
					Return(sampleFrame("lab"), nil)
			},
			expectedStatus: 200,
		},
		{
			name: "empty list is a valid frame",
			body: `{"embeddings":[]}`,
			setupMock: func(m *MockAttendanceService) {
				m.On("RecognizeEmbeddings", mock.Anything, [][]float32{}, "main").
					Return(&domain.FrameResult{Faces: []domain.FaceResult{}}, nil)
			},
			expectedStatus: 200,
		},
		{
			name:           "missing embeddings",
			body:           `{"station":"lab"}`,
			setupMock:      func(m *MockAttendanceService) {},
			expectedStatus: 422,
		},
		{
			name:           "invalid json",
			body:           `{"embeddings":`,
			setupMock:      func(m *MockAttendanceService) {},
			expectedStatus: 400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAttendanceService{}
			tt.setupMock(svc)

			app := newTestApp()
			app.Post("/v1/recognitions/embeddings", NewRecognitionHandler(svc, "main", testLogger()).RecognizeEmbeddings)

			req := httptest.NewRequest("POST", "/v1/recognitions/embeddings", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			svc.AssertExpectations(t)
		})
	}
}
