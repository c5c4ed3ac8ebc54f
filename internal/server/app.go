// Package server initializes and runs the application: it wires the database,
// repositories, services and the HTTP transport, and handles graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/copypaster/server/internal/cryptox"
	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/botcheck"
	"github.com/copypaster/server/internal/server/config"
	"github.com/copypaster/server/internal/server/httpapi"
	"github.com/copypaster/server/internal/server/mail"
	"github.com/copypaster/server/internal/server/repositories/repomanager"
	"github.com/copypaster/server/internal/server/todos"
	"github.com/copypaster/server/internal/server/uploads"
	"github.com/copypaster/server/internal/server/users"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// openDB and runMigrations are seams for testing NewApp.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

var runMigrations = func(ctx context.Context, repos *repomanager.PostgresRepositoryManager, db *sql.DB) error {
	return repos.RunMigrations(ctx, db)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	s := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(s)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := runMigrations(ctx, repos, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	cipher := cryptox.NewEnvelopeCipher(c.EncryptionKey, logger)
	mailer := mail.NewSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.SMTPFrom, logger)
	verifier := botcheck.NewTurnstileVerifier(c.TurnstileSecret, logger)

	userService := users.NewService(db, repos, mailer, verifier, c, logger)
	todoService := todos.NewService(db, repos, cipher, logger)
	uploadService := uploads.NewService(c)

	srv := httpapi.NewServer(c,
		httpapi.NewAuthHandler(userService),
		httpapi.NewTodoHandler(todoService),
		httpapi.NewUploadHandler(uploadService),
		logger)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
