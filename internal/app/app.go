package app

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Surveya/internal/bot"
	"github.com/markdave123-py/Surveya/internal/config"
	db "github.com/markdave123-py/Surveya/internal/core/database"
	"github.com/markdave123-py/Surveya/internal/scheduler"
	"github.com/markdave123-py/Surveya/internal/services"
)

// App wires the three long-lived components: the Telegram bot loop, the
// scheduler poller and the admin HTTP API.
type App struct {
	DBClient  db.DbClient
	Transport *bot.TelegramTransport
	Router    *bot.Router
	Poller    *scheduler.Poller
	Server    *Server

	log *zap.SugaredLogger
}

func NewApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	dbClient, err := db.NewDatabaseClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database initialized and ready")

	transport, err := bot.NewTelegramTransport(cfg.BotToken, log)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	sessions := bot.NewSessionStore()
	registration := bot.NewRegistrationMachine(dbClient, transport, log)
	survey := bot.NewSurveyMachine(dbClient, transport, log)
	router := bot.NewRouter(sessions, registration, survey, dbClient, transport, cfg.AdminChatID, log)

	surveyService := services.NewSurveyService(dbClient, transport, log)
	analyticsService := services.NewAnalyticsService(dbClient)

	poller := scheduler.NewPoller(dbClient, surveyService, cfg.PollIntervalMin, log)
	server := NewServer(cfg, dbClient, surveyService, analyticsService, log)

	return &App{
		DBClient:  dbClient,
		Transport: transport,
		Router:    router,
		Poller:    poller,
		Server:    server,
		log:       log,
	}, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Transport.Run(ctx, a.Router) })
	g.Go(func() error { return a.Poller.Run(ctx) })
	g.Go(func() error { return a.Server.Start(ctx) })

	return g.Wait()
}

func (a *App) Close() {
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
