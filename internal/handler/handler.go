// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// OutcomeKey is the context key under which handlers store the command
// outcome for the metrics middleware.
const OutcomeKey = "outcome"

// Command outcomes shared by several handlers.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeBusy  = "busy"

	// OutcomePhotoFallback marks a roll whose photo failed and was sent as text.
	OutcomePhotoFallback = "photo_fallback"
)

// DefaultCommandTimeout bounds the store calls of one command.
const DefaultCommandTimeout = 10 * time.Second

const (
	msgGenericError = "⚠️ Something went wrong, please try again later."
	msgBusy         = "⏳ Still working on your last command, try again in a moment."
)

// MsgHelp is the reply to /start.
const MsgHelp = "🔥 Welcome to Waifu Catcher!\n\n" +
	"Commands:\n" +
	"/catch - roll for a waifu (then /claim)\n" +
	"/claim - claim your last rolled waifu\n" +
	"/inventory - see your collection\n" +
	"/profile - your stats\n" +
	"/leaderboard - top collectors\n"

// HandleStart handles the /start command.
func HandleStart(c tele.Context) error {
	setOutcome(c, OutcomeOK)
	return c.Reply(MsgHelp)
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func setOutcome(c tele.Context, outcome string) {
	c.Set(OutcomeKey, outcome)
}

// replyError logs err and sends the generic failure message.
func replyError(c tele.Context, command string, err error) error {
	setOutcome(c, OutcomeError)
	ev := log.Error().Err(err).Str("command", command)
	if sender := c.Sender(); sender != nil {
		ev = ev.Int64("user_id", sender.ID)
	}
	ev.Msg("Command failed")
	return c.Reply(msgGenericError)
}
