package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

const maxHistoryLimit = 5000

// HistoryService reads the attendance ledger
type HistoryService interface {
	History(ctx context.Context, filter domain.AttendanceFilter) ([]domain.AttendanceRecord, error)
}

type AttendanceHandler struct {
	service HistoryService
	logger  *slog.Logger
}

func NewAttendanceHandler(service HistoryService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
	}
}

type AttendanceListResponse struct {
	Records []domain.AttendanceRecord `json:"records"`
	Total   int                       `json:"total"`
}

// List GET /v1/attendance
func (h *AttendanceHandler) List(c *fiber.Ctx) error {
	filter, err := parseAttendanceFilter(c)
	if err != nil {
		return err
	}

	records, err := h.service.History(c.Context(), filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}

	return c.JSON(AttendanceListResponse{
		Records: records,
		Total:   len(records),
	})
}

func parseAttendanceFilter(c *fiber.Ctx) (domain.AttendanceFilter, error) {
	filter := domain.AttendanceFilter{
		IdentityID: c.Query("identity_id"),
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, domain.ErrValidationFailed.WithError(fmt.Errorf("%s must be RFC 3339: %w", p.name, err))
		}
		*p.dst = t
	}

	filter.Limit = c.QueryInt("limit", 0)
	if filter.Limit < 0 || filter.Limit > maxHistoryLimit {
		return filter, domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 0 and %d", maxHistoryLimit))
	}

	return filter, nil
}
