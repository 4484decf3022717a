// Package app wires a workspace: database, schema, record gateway, and the
// feed and story assemblers configured from sitefeed.yml.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"sitefeed/internal/config"
	"sitefeed/internal/db"
	"sitefeed/internal/feed"
	"sitefeed/internal/migrate"
	"sitefeed/internal/repo"
	"sitefeed/internal/story"
)

type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Repo      repo.Repo
	Logger    *slog.Logger
}

// Open creates the workspace directory if needed, opens the database, and
// applies pending migrations. A nil cfg loads sitefeed.yml or its defaults.
func Open(ctx context.Context, workspace string, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(workspace); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open db %s: %w", db.Path(workspace), err)
	}
	if _, err := migrate.Apply(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &App{
		Workspace: workspace,
		Config:    cfg,
		DB:        conn,
		Repo:      repo.Repo{DB: conn, Logger: logger},
		Logger:    logger,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

func (a *App) Feed() feed.Assembler {
	asm := feed.New(a.Repo, a.Logger)
	asm.FetchTimeout = a.Config.Feed.FetchTimeout
	return asm
}

func (a *App) Stories() story.Assembler {
	asm := story.New(a.Repo, a.Logger)
	asm.FetchTimeout = a.Config.Feed.FetchTimeout
	return asm
}
