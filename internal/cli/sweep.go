package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"grant-workers/internal/common/config"
	"grant-workers/internal/common/database"
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/source"
)

type sweepOutput struct {
	Report     cache.SweepReport `json:"report"`
	SweptAt    time.Time         `json:"sweptAt"`
	DurationMs int64             `json:"durationMs"`
}

func newSweepCmd(g *globals) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired, corrupt and orphaned match cache entries",
		Long:  `Sweep the match cache in the configured Redis, checking grant and user
existence against the configured Postgres.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, g, batch)
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "keys per existence check (default from config)")
	return cmd
}

func runSweep(cmd *cobra.Command, g *globals, batch int) error {
	log := g.logger()
	ctx := cmd.Context()

	cfg, err := loadServiceConfig(g.config)
	if err != nil {
		return err
	}
	if batch <= 0 {
		batch = cfg.Matching.SweepBatchSize
	}

	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer redis.Close()
	if err := redis.Ping(ctx); err != nil {
		return err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	store := source.NewPostgresStore(pg.DB, log)
	sweeper := cache.NewSweeper(cache.NewRedisStore(redis.Client, cfg.Matching.CacheTTL()), store, batch, log).
		WithUserChecker(store)

	start := time.Now()
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	result := sweepOutput{
		Report:     report,
		SweptAt:    start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	out := cmd.OutOrStdout()
	if g.output == "json" {
		return writeJSON(out, result)
	}
	return sweepTable(out, result)
}

func loadServiceConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
