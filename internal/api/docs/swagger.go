package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// EnrollmentResponse represents a registered identity
type EnrollmentResponse struct {
	IdentityID  string `json:"identity_id" example:"emp-0042"`
	DisplayName string `json:"display_name" example:"Alice Souza"`
	ImageKey    string `json:"image_key" example:"emp-0042.jpg"`
	CreatedAt   string `json:"created_at" example:"2024-01-01T09:00:00Z"`
	UpdatedAt   string `json:"updated_at" example:"2024-01-01T09:00:00Z"`
}

// EnrollmentListResponse wraps every registered identity
type EnrollmentListResponse struct {
	Enrollments []EnrollmentResponse `json:"enrollments"`
	Total       int                  `json:"total" example:"12"`
}

// AttendanceRecordResponse represents one stored attendance row
type AttendanceRecordResponse struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	IdentityID  string `json:"identity_id" example:"emp-0042"`
	DisplayName string `json:"display_name" example:"Alice Souza"`
	Timestamp   string `json:"timestamp" example:"2024-01-01T10:05:00Z"`
	Station     string `json:"station,omitempty" example:"front-door"`
}

// AttendanceListResponse wraps an attendance history query
type AttendanceListResponse struct {
	Records []AttendanceRecordResponse `json:"records"`
	Total   int                        `json:"total" example:"1"`
}

// FaceResponse is the per-face outcome of a recognition
type FaceResponse struct {
	Matched     bool                      `json:"matched" example:"true"`
	IdentityID  string                    `json:"identity_id,omitempty" example:"emp-0042"`
	DisplayName string                    `json:"display_name,omitempty" example:"Alice Souza"`
	Distance    float64                   `json:"distance" example:"0.31"`
	Recorded    bool                      `json:"recorded" example:"true"`
	Record      *AttendanceRecordResponse `json:"record,omitempty"`
	Error       string                    `json:"error,omitempty" example:""`
}

// DisplayResponse is the single label shown for the frame
type DisplayResponse struct {
	IdentityID  string `json:"identity_id" example:"emp-0042"`
	DisplayName string `json:"display_name" example:"Alice Souza"`
	Timestamp   string `json:"timestamp" example:"2024-01-01T10:05:00Z"`
	Recorded    bool   `json:"recorded" example:"true"`
}

// RecognitionResponse represents a processed frame
type RecognitionResponse struct {
	Station     string          `json:"station,omitempty" example:"front-door"`
	Faces       []FaceResponse  `json:"faces"`
	Display     DisplayResponse `json:"display"`
	ProcessedAt string          `json:"processed_at" example:"2024-01-01T10:05:00Z"`
}

// EmbeddingsRequest submits precomputed embeddings
type EmbeddingsRequest struct {
	Station    string      `json:"station,omitempty" example:"front-door"`
	Embeddings [][]float32 `json:"embeddings"`
}

// ReloadResponse reports the gallery size after a reload
type ReloadResponse struct {
	Entries int `json:"entries" example:"12"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var (
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized")
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	apiKeyAuth      = endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}})
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Rollcall Attendance API",
		Version:     "v1.0.0",
		Description: "Face-recognition attendance: enroll identities, submit camera frames, query the hourly attendance ledger",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/enrollments
		endpoint.New(
			endpoint.POST,
			"/enrollments",
			endpoint.WithTags("Enrollments"),
			endpoint.WithSummary("Enroll an identity"),
			endpoint.WithDescription("Multipart form with identity_id, display_name and image (exactly one face). Re-enrolling an identity replaces its embedding and name. The gallery is reloaded before the response."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollmentResponse{}, "201", "Identity enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "identity_id and display_name are required"}, "422", "Unprocessable Entity"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MULTIPLE_FACES", Message: "Multiple faces detected"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "EXTRACTOR_UNAVAILABLE", Message: "Embedding extractor unavailable"}, "503", "Service Unavailable"),
				errInternal,
			}),
			apiKeyAuth,
		),

		// GET /v1/enrollments
		endpoint.New(
			endpoint.GET,
			"/enrollments",
			endpoint.WithTags("Enrollments"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollmentListResponse{}, "200", "Enrollments in gallery order"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			apiKeyAuth,
		),

		// DELETE /v1/enrollments/{identity_id}
		endpoint.New(
			endpoint.DELETE,
			"/enrollments/{identity_id}",
			endpoint.WithTags("Enrollments"),
			endpoint.WithSummary("Remove an identity"),
			endpoint.WithDescription("Deletes the enrollment and its snapshot. Attendance history is kept."),
			endpoint.WithParams(
				parameter.StrParam("identity_id", parameter.Path, parameter.WithDescription("Identity to remove")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Identity removed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "ENROLLMENT_NOT_FOUND", Message: "Identity is not enrolled"}, "404", "Not Found"),
				errInternal,
			}),
			apiKeyAuth,
		),

		// POST /v1/gallery/reload
		endpoint.New(
			endpoint.POST,
			"/gallery/reload",
			endpoint.WithTags("Enrollments"),
			endpoint.WithSummary("Rebuild the in-memory gallery"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReloadResponse{}, "200", "Gallery reloaded"),
			}),
			endpoint.WithErrors([]response.Response{errUnauthorized, errInternal}),
			apiKeyAuth,
		),

		// POST /v1/recognitions
		endpoint.New(
			endpoint.POST,
			"/recognitions",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Process a camera frame"),
			endpoint.WithDescription("Multipart form with image and optional station. Every face is matched independently; attendance is recorded at most once per identity per hour. A face whose record could not be written carries an error while the others succeed."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionResponse{}, "200", "Frame processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "EXTRACTOR_UNAVAILABLE", Message: "Embedding extractor unavailable"}, "503", "Service Unavailable"),
				errInternal,
			}),
			apiKeyAuth,
		),

		// POST /v1/recognitions/embeddings
		endpoint.New(
			endpoint.POST,
			"/recognitions/embeddings",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Process precomputed embeddings"),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(EmbeddingsRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognitionResponse{}, "200", "Frame processed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				errUnauthorized,
				errInternal,
			}),
			apiKeyAuth,
		),

		// GET /v1/attendance
		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Query attendance history"),
			endpoint.WithDescription("Newest first. from and to are RFC 3339 timestamps."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("identity_id", parameter.Query, parameter.WithDescription("Only this identity")),
				parameter.StrParam("from", parameter.Query, parameter.WithDescription("Inclusive lower bound")),
				parameter.StrParam("to", parameter.Query, parameter.WithDescription("Exclusive upper bound")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum records (default: 500)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceListResponse{}, "200", "Attendance records"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				errUnauthorized,
				errInternal,
			}),
			apiKeyAuth,
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
