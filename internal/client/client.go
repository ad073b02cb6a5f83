// Package client talks to a running rollcall API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Enrollment as listed by the server.
type Enrollment struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	ImageKey    string `json:"image_key,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Face is one face of a recognized frame.
type Face struct {
	domain.MatchResult
	Recorded bool                     `json:"recorded"`
	Record   *domain.AttendanceRecord `json:"record,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// Frame is the server's answer to a recognition request.
type Frame struct {
	Station     string         `json:"station,omitempty"`
	Faces       []Face         `json:"faces"`
	Display     domain.Display `json:"display"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enroll(ctx context.Context, identityID, displayName, filename string, image []byte) (*Enrollment, error) {
	body, contentType, err := imageForm(map[string]string{
		"identity_id":  identityID,
		"display_name": displayName,
	}, filename, image)
	if err != nil {
		return nil, err
	}

	var out Enrollment
	if err := c.do(ctx, http.MethodPost, "/v1/enrollments", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListEnrollments(ctx context.Context) ([]Enrollment, error) {
	var out struct {
		Enrollments []Enrollment `json:"enrollments"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/enrollments", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Enrollments, nil
}

func (c *Client) Unenroll(ctx context.Context, identityID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/enrollments/"+url.PathEscape(identityID), "", nil, nil)
}

// ReloadGallery returns the number of gallery entries after the reload.
func (c *Client) ReloadGallery(ctx context.Context) (int, error) {
	var out struct {
		Entries int `json:"entries"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/gallery/reload", "", nil, &out); err != nil {
		return 0, err
	}
	return out.Entries, nil
}

func (c *Client) Recognize(ctx context.Context, station, filename string, image []byte) (*Frame, error) {
	fields := map[string]string{}
	if station != "" {
		fields["station"] = station
	}
	body, contentType, err := imageForm(fields, filename, image)
	if err != nil {
		return nil, err
	}

	var out Frame
	if err := c.do(ctx, http.MethodPost, "/v1/recognitions", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Attendance(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error) {
	q := url.Values{}
	if filter.IdentityID != "" {
		q.Set("identity_id", filter.IdentityID)
	}
	if !filter.From.IsZero() {
		q.Set("from", filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		q.Set("to", filter.To.Format(time.RFC3339))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/v1/attendance"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Records []domain.AttendanceRecord `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{StatusCode: status, Code: "HTTP_ERROR", Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{StatusCode: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func imageForm(fields map[string]string, filename string, image []byte) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", imageContentType(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return body, w.FormDataContentType(), nil
}

func imageContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
