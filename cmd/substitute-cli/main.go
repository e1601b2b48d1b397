package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/cmd/substitute-cli/commands"
	"github.com/noah-isme/sma-substitution-api/internal/app"
	"github.com/noah-isme/sma-substitution-api/pkg/cache"
	"github.com/noah-isme/sma-substitution-api/pkg/config"
	"github.com/noah-isme/sma-substitution-api/pkg/database"
	"github.com/noah-isme/sma-substitution-api/pkg/logger"
)

var (
	verbose   bool
	container *app.Container
)

func main() {
	appCtx := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:          "substitute-cli",
		Short:        "Administer the substitute teacher matching service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(appCtx)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if container != nil {
				container.Close()
			}
			if appCtx.Logger != nil {
				appCtx.Logger.Sync() //nolint:errcheck
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(commands.MigrateCmd(appCtx))
	rootCmd.AddCommand(commands.AutoAssignCmd(appCtx))
	rootCmd.AddCommand(commands.RefreshPerformanceCmd(appCtx))
	rootCmd.AddCommand(commands.CompleteElapsedCmd(appCtx))
	rootCmd.AddCommand(commands.CapsCmd(appCtx))
	rootCmd.AddCommand(commands.AbsenceCmd(appCtx))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads configuration, opens connections and wires services into appCtx.
func initApp(appCtx *commands.AppContext) error {
	log, err := logger.NewCLI(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appCtx.Logger = log

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Debug("configuration loaded", zap.String("env", cfg.Env))

	db, err := database.NewPostgres(appCtx.Ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(appCtx.Ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, reliability cache disabled", zap.Error(err))
		redisClient = nil
	}

	container, err = app.New(cfg, db, redisClient, log)
	if err != nil {
		db.Close()
		return err
	}

	appCtx.Migrate = func(ctx context.Context) ([]string, error) {
		return database.RunMigrations(ctx, db, log)
	}
	appCtx.Matcher = container.Substitutions
	appCtx.Reliability = container.Performance
	appCtx.Caps = container.Preferences
	appCtx.Absences = container.Absences
	return nil
}
