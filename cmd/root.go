package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-backend/config"
	"venue-backend/logger"
	"venue-backend/services"
)

// rootOptions holds the global flags and what PersistentPreRunE builds.
type rootOptions struct {
	EnvFile string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand creates the venue-backend command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "venue-backend",
		Short:         "Venue reservation state server",
		Long:          "Stores the shared reservation document in a relational database and hands out quote numbers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.EnvFile != "" {
				if err := godotenv.Load(opts.EnvFile); err != nil {
					return fmt.Errorf("load %s: %w", opts.EnvFile, err)
				}
			}
			opts.cfg = config.Load()
			l, err := logger.Init(opts.cfg.LogLevel, opts.cfg.Env, "venue-backend")
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.log = l
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "load environment variables from this file first")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSequenceCommand(opts))
	cmd.AddCommand(newStateCommand(opts))
	cmd.AddCommand(newMirrorCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (o *rootOptions) database() (*gorm.DB, error) {
	db, err := config.ConnectDatabase(o.cfg.DB, o.log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func (o *rootOptions) documentService(db *gorm.DB) *services.DocumentService {
	svc := services.NewDocumentService(db, o.log, o.cfg.QuoteScope)
	if o.cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     o.cfg.Redis.Addr,
			Password: o.cfg.Redis.Password,
			DB:       o.cfg.Redis.DB,
		})
		svc.Cache = services.NewRedisSnapshotCache(client, o.cfg.SnapshotCacheTTL, o.log)
		o.log.Info("snapshot cache enabled", zap.String("addr", o.cfg.Redis.Addr))
	}
	return svc
}
