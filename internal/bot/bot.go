package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"waifu-catcher-bot/internal/config"
	"waifu-catcher-bot/internal/handler"
	"waifu-catcher-bot/internal/pkg/lock"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	access *PrivateAccess

	// Handlers
	gachaHandler      *handler.GachaHandler
	collectionHandler *handler.CollectionHandler
	rankingHandler    *handler.RankingHandler
	adminHandler      *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config     *config.Config
	Gacha      handler.Catcher
	Collection handler.CollectionViewer
	Ranking    handler.Leaderboarder
	Catalog    handler.CatalogCounter
	UserLock   *lock.UserLock

	// Metrics is optional; nil disables command counting.
	Metrics CommandRecorder
}

// NewTeleBot creates the telebot instance. It is separate from New so the
// name resolver can use the Bot API before handlers are wired.
func NewTeleBot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, config.ErrMissingToken
	}

	pollTimeout := cfg.Bot.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, c tele.Context) {
			evt := log.Error().Err(err)
			if c != nil {
				evt = evt.Str("text", c.Text())
			}
			evt.Msg("Unhandled bot error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires middleware and command handlers onto teleBot.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	timeout := deps.Config.Bot.CommandTimeout

	b := &Bot{
		bot:    teleBot,
		cfg:    deps.Config,
		access: NewPrivateAccess(),

		gachaHandler:      handler.NewGachaHandler(deps.Gacha, deps.UserLock, timeout),
		collectionHandler: handler.NewCollectionHandler(deps.Collection, timeout),
		rankingHandler:    handler.NewRankingHandler(deps.Ranking, timeout),
		adminHandler:      handler.NewAdminHandler(deps.Catalog, timeout),
	}

	b.registerMiddleware(deps.Metrics)
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware. Metrics wraps recovery so
// recovered panics are counted with their outcome.
func (b *Bot) registerMiddleware(rec CommandRecorder) {
	for _, mw := range middlewareChain(b.cfg, b.access, rec) {
		b.bot.Use(mw)
	}
}

// middlewareChain returns the global middleware, outermost first.
func middlewareChain(cfg *config.Config, access *PrivateAccess, rec CommandRecorder) []tele.MiddlewareFunc {
	var chain []tele.MiddlewareFunc
	if rec != nil {
		chain = append(chain, MetricsMiddleware(rec))
	}
	return append(chain,
		RecoveryMiddleware(),
		WhitelistMiddleware(cfg, access),
		LoggingMiddleware(),
	)
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", handler.HandleStart)
	b.bot.Handle("/help", handler.HandleStart)

	b.bot.Handle("/catch", b.gachaHandler.HandleCatch)
	b.bot.Handle("/claim", b.gachaHandler.HandleClaim)

	b.bot.Handle("/inventory", b.collectionHandler.HandleInventory)
	b.bot.Handle("/profile", b.collectionHandler.HandleProfile)

	b.bot.Handle("/leaderboard", b.rankingHandler.HandleLeaderboard)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/catalog", b.adminHandler.HandleCatalog)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
