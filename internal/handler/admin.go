package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// CatalogCounter reports the catalog size. *repository.CatalogRepository satisfies it.
type CatalogCounter interface {
	Count(ctx context.Context) (int64, error)
}

// AdminHandler handles admin-related commands.
type AdminHandler struct {
	catalog CatalogCounter
	timeout time.Duration
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(catalog CatalogCounter, timeout time.Duration) *AdminHandler {
	return &AdminHandler{catalog: catalog, timeout: timeout}
}

// HandleCatalog handles the /catalog command.
// Only reachable through AdminMiddleware.
func (h *AdminHandler) HandleCatalog(c tele.Context) error {
	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	n, err := h.catalog.Count(ctx)
	if err != nil {
		return replyError(c, "catalog", err)
	}

	if sender := c.Sender(); sender != nil {
		log.Info().
			Int64("admin_id", sender.ID).
			Int64("catalog_size", n).
			Str("operation", "catalog").
			Msg("Admin operation executed")
	}

	setOutcome(c, OutcomeOK)
	return c.Reply(fmt.Sprintf("📚 Catalog size: %d", n))
}
