package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitefeed/internal/app"
	"sitefeed/internal/config"
	"sitefeed/internal/db"
	"sitefeed/internal/domain"
	"sitefeed/internal/logging"
	"sitefeed/internal/seed"
	"sitefeed/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sf",
	Short: "Sitefeed CLI",
	Long: `Sitefeed turns construction records into two read models:
- Feed: a ranked list of cards across every project (overdue invoices, bills due, stalled jobs, fresh logs and photos, upcoming bids).
- Story: one project's lifecycle as stages (estimate, crew, daily logs, completion, invoicing) with the current stage inferred.
Records live in a SQLite workspace under .sitefeed/; load them with 'sf seed --file data.yml'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Init(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SITEFEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(feedCmd())
	rootCmd.AddCommand(storiesCmd())
	rootCmd.AddCommand(storyCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(configCmd())
}

// loadConfig reads sitefeed.yml (or defaults) and applies flag and
// SITEFEED_* environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("addr"); viper.IsSet("addr") && v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("base-path"); viper.IsSet("base-path") && v != "" {
		cfg.Server.BasePath = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if viper.IsSet("fetch-timeout") {
		cfg.Feed.FetchTimeout = viper.GetDuration("fetch-timeout")
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, viper.GetString("workspace"), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				cfg := a.Config
				handler, err := server.New(server.Config{
					Feed:     a.Feed(),
					Stories:  a.Stories(),
					BasePath: cfg.Server.BasePath,
					Auth:     server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret, Logger: a.Logger},
					Logger:   a.Logger,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Logger.Info("serving sitefeed api",
					"addr", cfg.Server.Addr,
					"base_path", cfg.Server.BasePath,
					"auth", cfg.Auth.JWTSecret != "",
					"db", db.Path(a.Workspace))
				fmt.Printf("Serving Sitefeed API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
					cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from sitefeed.yml)")
	cmd.Flags().String("base-path", "", "API base path (default from sitefeed.yml)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("base-path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func feedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the ranked attention feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f := a.Feed().Assemble(ctx)
				if limit > 0 && len(f.Cards) > limit {
					f.Cards = f.Cards[:limit]
				}
				if viper.GetBool("json") {
					return printJSON(f)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Priority", "Title", "Project", "When", "Description"})
				tw.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 60}})
				for _, c := range f.Cards {
					tw.AppendRow(table.Row{priorityLabel(c.Priority), c.Title, c.ProjectCode, c.Timestamp.Format("Jan 2 15:04"), c.Description})
				}
				tw.Render()
				if len(f.UpcomingBids) > 0 {
					fmt.Println()
					bt := table.NewWriter()
					bt.SetOutputMirror(os.Stdout)
					bt.SetTitle("Upcoming Bids")
					bt.AppendHeader(table.Row{"Bid", "Client", "Due", "Status"})
					for _, b := range f.UpcomingBids {
						bt.AppendRow(table.Row{b.Name, deref(b.ClientName), dateOrDash(b.DueDate), b.Status})
					}
					bt.Render()
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many cards")
	return cmd
}

func storiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List project stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Stories().Summaries(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Code", "Project", "Client", "Stage", "Updated"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ProjectID, s.ProjectCode, s.ProjectName, s.ClientName, s.CurrentStageName, s.LastUpdated.Format("2006-01-02")})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func storyCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "story [project-id]",
		Short: "Show one project's story",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" && len(args) == 1 {
				projectID = args[0]
			}
			if projectID == "" {
				return fmt.Errorf("project id is required; use --project")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Stories().Story(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("%s  %s (%s)\n", st.ProjectCode, st.ProjectName, st.Status)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"", "Stage", "Substeps", "Completed"})
				for i, s := range st.Stages {
					marker := ""
					if i == st.CurrentStageIndex {
						marker = text.Bold.Sprint("▶")
					}
					tw.AppendRow(table.Row{marker, s.Label, len(s.Substeps), dateOrDash(s.CompletedAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a YAML dataset into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ds, err := seed.FromFile(file)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sum, err := seed.Import(ctx, a.Repo, ds, time.Now())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				fmt.Printf("Imported %d records into %s (%d projects, %d invoices, %d daily logs, %d photos)\n",
					sum.Total(), db.Path(a.Workspace), sum.Projects, sum.Invoices, sum.DailyLogs, sum.Photos)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "dataset YAML path")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage sitefeed.yml",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default sitefeed.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Auth.JWTSecret != "" {
				shown.Auth.JWTSecret = "********"
			}
			return printJSON(shown)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate sitefeed.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func priorityLabel(t domain.Tier) string {
	switch t {
	case domain.TierCritical:
		return text.FgRed.Sprint(string(t))
	case domain.TierHigh:
		return text.FgYellow.Sprint(string(t))
	default:
		return string(t)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
