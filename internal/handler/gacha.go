package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"waifu-catcher-bot/internal/model"
	"waifu-catcher-bot/internal/pkg/lock"
	"waifu-catcher-bot/internal/service"
)

// Catcher runs the catch and claim lifecycle. *service.GachaService satisfies it.
type Catcher interface {
	Catch(ctx context.Context, userID int64) (*service.CatchResult, error)
	Claim(ctx context.Context, userID int64) (*service.ClaimResult, error)
}

// GachaHandler handles /catch and /claim.
type GachaHandler struct {
	gacha    Catcher
	userLock *lock.UserLock
	timeout  time.Duration
}

// NewGachaHandler creates a new GachaHandler.
func NewGachaHandler(gacha Catcher, userLock *lock.UserLock, timeout time.Duration) *GachaHandler {
	if userLock == nil {
		userLock = lock.NewUserLock()
	}
	return &GachaHandler{gacha: gacha, userLock: userLock, timeout: timeout}
}

// HandleCatch handles the /catch command.
func (h *GachaHandler) HandleCatch(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	var res *service.CatchResult
	err := h.userLock.WithLock(ctx, sender.ID, func() error {
		var err error
		res, err = h.gacha.Catch(ctx, sender.ID)
		return err
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		setOutcome(c, OutcomeBusy)
		return c.Reply(msgBusy)
	}
	if err != nil {
		return replyError(c, "catch", err)
	}

	setOutcome(c, res.Status.String())
	switch res.Status {
	case service.CatchCooldown:
		return c.Reply(RenderCooldown(res.Remaining))
	case service.CatchEmptyCatalog:
		return c.Reply(msgEmptyCatalog)
	default:
		delivered, err := sendRoll(c, res.Pending)
		if res.Pending.HasImage() && !delivered {
			setOutcome(c, OutcomePhotoFallback)
		}
		return err
	}
}

// HandleClaim handles the /claim command.
func (h *GachaHandler) HandleClaim(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx, cancel := commandContext(h.timeout)
	defer cancel()

	var res *service.ClaimResult
	err := h.userLock.WithLock(ctx, sender.ID, func() error {
		var err error
		res, err = h.gacha.Claim(ctx, sender.ID)
		return err
	})
	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		setOutcome(c, OutcomeBusy)
		return c.Reply(msgBusy)
	case errors.Is(err, service.ErrNothingToClaim):
		setOutcome(c, "nothing")
		return c.Reply(msgNothingToClaim)
	case err != nil:
		return replyError(c, "claim", err)
	}

	setOutcome(c, OutcomeOK)
	return c.Reply(RenderClaim(res.Entry))
}

// sendRoll replies with the roll, as a photo when it has an image. A failed
// photo send falls back to text. It reports whether the photo was delivered.
func sendRoll(c tele.Context, p *model.PendingRoll) (bool, error) {
	caption := RenderRoll(p)
	if !p.HasImage() {
		return false, c.Reply(caption)
	}

	photo := &tele.Photo{File: photoFile(p.Image), Caption: caption}
	if err := c.Reply(photo); err != nil {
		log.Warn().
			Err(err).
			Int64("user_id", p.UserID).
			Str("collectible_id", p.CollectibleID).
			Msg("Photo send failed, falling back to text")
		return false, c.Reply(caption)
	}
	return true, nil
}

// photoFile treats http(s) references as URLs and anything else as a
// Telegram file id.
func photoFile(ref string) tele.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tele.FromURL(ref)
	}
	return tele.File{FileID: ref}
}
