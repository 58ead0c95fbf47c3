package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "ecourt-scraper/docs"
	"ecourt-scraper/internal/artifact"
	"ecourt-scraper/internal/browser"
	"ecourt-scraper/internal/catalog"
	"ecourt-scraper/internal/client"
	"ecourt-scraper/internal/config"
	"ecourt-scraper/internal/logging"
	"ecourt-scraper/internal/repository/postgresql"
	"ecourt-scraper/internal/scraper"
	"ecourt-scraper/internal/service"
	httptransport "ecourt-scraper/internal/transport/http"
	"ecourt-scraper/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job API and the background extraction workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.New("serve")

	store, err := artifact.NewStore(cfg.Output.Dir, cfg.Output.PDFDir)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg, store)
	if err != nil {
		return err
	}

	observers, cleanup, err := newObservers(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer cleanup()

	pool := worker.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize, logging.New("pool"))
	jobSvc := service.NewJobService(service.NewRegistry(), pool, nil, logging.New("jobs"), observers...)
	processor := worker.NewProcessor(jobSvc, runner, logging.New("worker"))

	h := httptransport.NewHandler(jobSvc, store, cat, logging.New("http"))
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httptransport.Routes(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("config",
		"port", cfg.Server.Port,
		"workers", cfg.Workers.Count,
		"queue_size", cfg.Workers.QueueSize,
		"runner", cfg.Runner.Mode,
		"driver", cfg.Browser.Driver,
		"output_dir", store.Dir(),
		"postgres_dsn", config.RedactDSN(cfg.Postgres.DSN),
		"redis_addr", cfg.Redis.Addr,
		"s3_bucket", cfg.S3.Bucket,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pool.Run(gctx, processor)
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func newRunner(cfg *config.Config, store *artifact.Store) (worker.Runner, error) {
	switch cfg.Runner.Mode {
	case "", "inprocess":
		launcher, err := browser.NewLauncher(cfg.Browser.Driver, browser.Options{
			Headless: cfg.Browser.Headless,
			ExecPath: cfg.Browser.ExecPath,
		})
		if err != nil {
			return nil, err
		}
		engine := scraper.NewEngine(launcher, store, scraper.OptionsFromConfig(cfg), logging.New("scraper"))
		return worker.NewInProcessRunner(engine, store), nil
	case "subprocess":
		return worker.NewSubprocessRunner(cfg.Runner.Command, store, logging.New("runner"))
	default:
		return nil, fmt.Errorf("unknown runner mode %q", cfg.Runner.Mode)
	}
}

// newObservers connects the optional sinks for job transitions. Each one is
// enabled by its own config section; the returned cleanup closes them all.
func newObservers(ctx context.Context, cfg *config.Config, store *artifact.Store) ([]service.Observer, func(), error) {
	var (
		observers []service.Observer
		closers   []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		observers = append(observers, service.NewRedisPublisher(rdb, cfg.Redis.Channel, logging.New("events")))
	}

	if cfg.Postgres.DSN != "" {
		pool, err := postgresql.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("pg: %w", err)
		}
		closers = append(closers, pool.Close)
		journal := postgresql.NewRunJournal(pool, logging.New("journal"))
		if err := journal.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("pg: %w", err)
		}
		observers = append(observers, journal)
	}

	if cfg.S3.Enabled() {
		s3c, err := client.NewS3Client(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("s3: %w", err)
		}
		files := client.SourceFunc(func(name string) (io.ReadCloser, error) {
			return store.Open(name)
		})
		observers = append(observers, client.NewArtifactMirror(s3c, files, cfg.S3.Prefix, logging.New("mirror")))
	}

	return observers, cleanup, nil
}
