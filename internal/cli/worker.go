package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/config"
	"github.com/depsentry/depsentry/pkg/queue/redisq"
	"github.com/depsentry/depsentry/pkg/scan"
	"github.com/depsentry/depsentry/pkg/store/mongo"
)

// newWorkerCmd creates the worker command, a standalone queue consumer that
// scans jobs pushed by the API and persists the reports.
func newWorkerCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume scan jobs from the Redis queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultFile+")")

	return cmd
}

func runWorker(ctx context.Context, configPath string) error {
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

	if err := queue.Ping(ctx); err != nil {
		return err
	}

	scanner := scan.NewScanner(settings.TraversalConfig(), logger)
	consumer := redisq.NewConsumer(queue, scanJobHandler(scanner, store, logger))

	err = consumer.Run(ctx)
	if ctx.Err() != nil {
		return nil // Normal shutdown
	}
	return err
}
