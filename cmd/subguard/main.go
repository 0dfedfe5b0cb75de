// Command subguard synchronizes a subreddit's moderation log into a local
// SQLite store and issues escalating bans to users whose recent removal
// history crosses the scoring threshold. It is a batch tool: each invocation
// runs one linear pass and exits non-zero on any fatal error.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/subguard/subguard/internal/config"
	"github.com/subguard/subguard/internal/enforce"
	"github.com/subguard/subguard/internal/observability"
	"github.com/subguard/subguard/internal/reddit"
	"github.com/subguard/subguard/internal/repo"
	syncer "github.com/subguard/subguard/internal/sync"
	"github.com/subguard/subguard/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "subguard",
		Usage:   "moderation-log sync and auto-ban tool for a subreddit",
		Version: version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "0 for disabled, 1 for info, more for debug",
				Value:   0,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "pull new moderation-log events into the local store",
				ArgsUsage: "<subreddit>",
				Action:    cmdSync,
			},
			{
				Name:      "enforce",
				Usage:     "score candidates and ban users over the threshold",
				ArgsUsage: "<subreddit>",
				Action:    cmdEnforce,
			},
			{
				Name:      "run",
				Usage:     "sync then enforce in one pass",
				ArgsUsage: "<subreddit>",
				Action:    cmdRun,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "subguard:", err)
		os.Exit(1)
	}
}

// env is the per-invocation wiring shared by all commands.
type env struct {
	cfg       config.Config
	log       zerolog.Logger
	db        *gorm.DB
	client    *reddit.Client
	subreddit string
	shutdown  func(context.Context)
}

// setup builds the run environment: config, logger, tracing, metrics
// listener, store handle, and remote client. The returned shutdown must run
// on every exit path.
func setup(cctx *cli.Context) (*env, error) {
	subreddit := cctx.Args().First()
	if subreddit == "" {
		return nil, cli.Exit("usage: subguard [command] <subreddit>", 2)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := zerolog.New(os.Stderr).
		With().Timestamp().Str("subreddit", subreddit).Logger().
		Level(sysutil.LevelForVerbosity(cctx.Int("verbose")))

	otelShutdown, err := observability.SetupOTel(cctx.Context, cfg.OTEL, version)
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	db, err := repo.OpenSQLite(repo.DBPath(cfg.DataDir, subreddit))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := repo.EnsureSchema(db); err != nil {
		_ = repo.Close(db)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	client := reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	}, log)

	return &env{
		cfg:       cfg,
		log:       log,
		db:        db,
		client:    client,
		subreddit: subreddit,
		shutdown: func(ctx context.Context) {
			if err := repo.Close(db); err != nil {
				log.Error().Err(err).Msg("close store")
			}
			if err := otelShutdown(ctx); err != nil {
				log.Error().Err(err).Msg("otel shutdown")
			}
		},
	}, nil
}

// runCtx cancels on SIGINT/SIGTERM so an interrupted pass stops between
// remote calls; idempotent writes make the rerun safe.
func runCtx(cctx *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
}

func cmdSync(cctx *cli.Context) error {
	e, err := setup(cctx)
	if err != nil {
		return err
	}
	ctx, cancel := runCtx(cctx)
	defer cancel()
	defer e.shutdown(context.Background())

	return doSync(ctx, e)
}

func cmdEnforce(cctx *cli.Context) error {
	e, err := setup(cctx)
	if err != nil {
		return err
	}
	ctx, cancel := runCtx(cctx)
	defer cancel()
	defer e.shutdown(context.Background())

	return doEnforce(ctx, e)
}

func cmdRun(cctx *cli.Context) error {
	e, err := setup(cctx)
	if err != nil {
		return err
	}
	ctx, cancel := runCtx(cctx)
	defer cancel()
	defer e.shutdown(context.Background())

	if err := doSync(ctx, e); err != nil {
		return err
	}
	return doEnforce(ctx, e)
}

func doSync(ctx context.Context, e *env) error {
	me, err := e.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("login check: %w", err)
	}
	e.log.Debug().Str("user", me).Msg("reddit login ok")

	s := &syncer.Syncer{
		DB:        e.db,
		Client:    e.client,
		Subreddit: e.subreddit,
		PageLimit: e.cfg.PageLimit,
		Log:       e.log,
	}
	return s.Run(ctx)
}

func doEnforce(ctx context.Context, e *env) error {
	renderer, err := enforce.NewRenderer(enforce.CatalogFor(e.cfg.Locale))
	if err != nil {
		return fmt.Errorf("message templates: %w", err)
	}

	enf := &enforce.Enforcer{
		DB:           e.db,
		Client:       e.client,
		Subreddit:    e.subreddit,
		Renderer:     renderer,
		Log:          e.log,
		Threshold:    e.cfg.Threshold,
		WindowDays:   e.cfg.WindowDays,
		CooldownDays: e.cfg.CooldownDays,
		Note:         sysutil.FirstNonEmpty(e.cfg.BanNote, enforce.DefaultNote),
	}
	return enf.Run(ctx)
}
