package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/service"
)

// AuditHandler exposes the security audit trail to administrators.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: auditService}
}

// List handles GET /admin/audit, newest entries first. Limit defaulting
// and clamping is owned by the audit service.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 0))
	entries, err := h.audit.Recent(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":   len(entries),
		"entries": entries,
	})
}
