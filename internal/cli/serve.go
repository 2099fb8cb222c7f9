package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/queue/redisq"
	"github.com/depsentry/depsentry/pkg/scan"
	"github.com/depsentry/depsentry/pkg/server"
	"github.com/depsentry/depsentry/pkg/store/mongo"
)

// newServeCmd creates the serve command, which runs the HTTP API backed by
// MongoDB and, optionally, an in-process queue worker.
func newServeCmd() *cobra.Command {
	var configPath string
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, withWorker)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultFile+")")
	cmd.Flags().BoolVar(&withWorker, "worker", false, "also consume scan jobs in this process")

	return cmd
}

func runServe(ctx context.Context, configPath string, withWorker bool) error {
	logger := loggerFromContext(ctx)

	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if lvl := parseLevel(settings.LogLevel); logger.GetLevel() > lvl {
		logger.SetLevel(lvl)
	}

	store, err := mongo.NewStore(ctx, mongo.Config{
		URI:      settings.Mongo.URI,
		Database: settings.Mongo.Database,
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	queue := redisq.New(redisq.Config{
		Addr:       settings.Redis.Addr,
		Password:   settings.Redis.Password,
		Queue:      settings.Redis.Queue,
		MaxRetries: settings.Redis.MaxRetries,
		RetryDelay: settings.RetryDelay(),
	}, logger)
	defer queue.Close()

	scanner := scan.NewScanner(settings.TraversalConfig(), logger)

	var consumer *redisq.Consumer
	var worker server.WorkerState
	if withWorker {
		consumer = redisq.NewConsumer(queue, scanJobHandler(scanner, store, logger))
		worker = consumer
	}

	srv := server.New(scanner, store, queue, worker, settings, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if consumer != nil {
		g.Go(func() error {
			err := consumer.Run(gctx)
			if gctx.Err() != nil {
				return nil // Normal shutdown
			}
			return err
		})
	}
	return g.Wait()
}

// scanJobHandler builds the queue handler shared by serve --worker and the
// standalone worker command. The report keeps the job's ID so async clients
// can fetch it by the ID they were given at enqueue time.
func scanJobHandler(scanner *scan.Scanner, store scan.Store, logger *log.Logger) redisq.Handler {
	return func(ctx context.Context, job redisq.Job) error {
		report, err := scanner.Scan(job.Repository, job.Graph)
		if err != nil {
			logger.Error("scan failed", "job", job.ID, "repository", job.Repository, "err", err)
			return err
		}
		report.ID = job.ID
		return store.Save(ctx, report)
	}
}
