package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/watch-market/internal/api/dto"
	"github.com/spec-kit/watch-market/internal/auth"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/service"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// ListingsHandler manages seller and public listing endpoints.
type ListingsHandler struct {
	listings *service.ListingService
	reports  *service.ReportService
}

// NewListingsHandler constructs handler.
func NewListingsHandler(listings *service.ListingService, reports *service.ReportService) *ListingsHandler {
	return &ListingsHandler{listings: listings, reports: reports}
}

// ListApproved GET /listings.
func (h *ListingsHandler) ListApproved(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	listings, err := h.listings.ListApproved(c.UserContext(), c.Query("brand"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponses(listings)})
}

// ListMine GET /me/listings.
func (h *ListingsHandler) ListMine(c *fiber.Ctx) error {
	var statuses []domain.ListingStatus
	for _, s := range splitCSV(c.Query("status")) {
		statuses = append(statuses, domain.ListingStatus(strings.ToUpper(s)))
	}
	limit, offset := pageParams(c)
	listings, err := h.listings.ListMine(c.UserContext(), auth.ActorFromContext(c), statuses, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponses(listings)})
}

// Create POST /listings.
func (h *ListingsHandler) Create(c *fiber.Ctx) error {
	var req dto.ListingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	listing, err := h.listings.Create(c.UserContext(), auth.ActorFromContext(c), req.Fields())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// Get GET /listings/:id.
func (h *ListingsHandler) Get(c *fiber.Ctx) error {
	listing, err := h.listings.Get(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// Update PATCH /listings/:id.
func (h *ListingsHandler) Update(c *fiber.Ctx) error {
	var req dto.ListingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	listing, err := h.listings.UpdateFields(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Fields())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}

// History GET /listings/:id/history.
func (h *ListingsHandler) History(c *fiber.Ctx) error {
	entries, err := h.listings.History(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditEntryResponses(entries)})
}

// Submit POST /listings/:id/submit.
func (h *ListingsHandler) Submit(c *fiber.Ctx) error {
	return h.respond(c, h.listings.Submit)
}

// MarkSold POST /listings/:id/mark-sold.
func (h *ListingsHandler) MarkSold(c *fiber.Ctx) error {
	return h.respond(c, h.listings.MarkSold)
}

// Reactivate POST /listings/:id/reactivate.
func (h *ListingsHandler) Reactivate(c *fiber.Ctx) error {
	return h.respond(c, h.listings.Reactivate)
}

// Delete DELETE /listings/:id.
func (h *ListingsHandler) Delete(c *fiber.Ctx) error {
	if err := h.listings.Delete(c.UserContext(), auth.ActorFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Report POST /listings/:id/reports.
func (h *ListingsHandler) Report(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}
	report, err := h.reports.Create(c.UserContext(), auth.ActorFromContext(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewReportResponse(report)})
}

func (h *ListingsHandler) respond(c *fiber.Ctx, transition transitionFunc) error {
	listing, err := transition(c.UserContext(), auth.ActorFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewListingResponse(listing)})
}
