package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/watch-market/internal/api/dto"
	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/service"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

type transitionFunc func(ctx context.Context, actor *domain.Actor, id string) (*domain.Listing, error)

// ModerationHandler exposes the administrator queue and report triage.
type ModerationHandler struct {
	moderation *service.ModerationService
	reports    *service.ReportService
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderation *service.ModerationService, reports *service.ReportService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, reports: reports}
}

// Pending GET /admin/moderation/pending.
func (h *ModerationHandler) Pending(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	items, err := h.moderation.Pending(c.UserContext(), auth.ActorFromContext(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPendingListingResponses(items)})
}

// Approve POST /admin/listings/:id/approve.
func (h *ModerationHandler) Approve(c *fiber.Ctx) error {
	return h.respond(c, h.moderation.Approve)
}

// Archive POST /admin/listings/:id/archive.
func (h *ModerationHandler) Archive(c *fiber.Ctx) error {
	return h.respond(c, h.moderation.Archive)
}

// Reject POST /admin/listings/:id/reject. The body is optional.
func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	var req dto.RejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorutil.NewValidationError("invalid payload", nil)
		}
	}
	listing, err := h.moderation.Reject(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// ListReports GET /admin/reports.
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	status := domain.ReportStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	reports, err := h.reports.List(c.UserContext(), auth.ActorFromContext(c), status, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, dto.NewReportResponse(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CloseReport POST /admin/reports/:id/close.
func (h *ModerationHandler) CloseReport(c *fiber.Ctx) error {
	report, err := h.reports.Close(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

func (h *ModerationHandler) respond(c *fiber.Ctx, transition transitionFunc) error {
	listing, err := transition(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}
