package handler

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v3"

	"waifu-catcher-bot/internal/service"
)

// CollectionViewer reads a user's collection. *service.CollectionService satisfies it.
type CollectionViewer interface {
	Inventory(ctx context.Context, userID int64, limit int) (*service.InventoryPage, error)
	Profile(ctx context.Context, userID int64) (*service.ProfileStats, error)
}

// CollectionHandler handles /inventory and /profile.
type CollectionHandler struct {
	collection CollectionViewer
	timeout    time.Duration
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(collection CollectionViewer, timeout time.Duration) *CollectionHandler {
	return &CollectionHandler{collection: collection, timeout: timeout}
}

// HandleInventory handles the /inventory command.
func (h *CollectionHandler) HandleInventory(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	page, err := h.collection.Inventory(ctx, sender.ID, service.InventoryLimit)
	if err != nil {
		return replyError(c, "inventory", err)
	}

	setOutcome(c, OutcomeOK)
	return c.Reply(RenderInventory(page))
}

// HandleProfile handles the /profile command.
func (h *CollectionHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	stats, err := h.collection.Profile(ctx, sender.ID)
	if err != nil {
		return replyError(c, "profile", err)
	}

	setOutcome(c, OutcomeOK)
	return c.Reply(RenderProfile(stats))
}
