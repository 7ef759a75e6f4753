// Command builder runs the batch profile update for every user, or for the
// users given with --user, and exits.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/config"
	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/logger"
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/middleware"
	"github.com/jengzang/personal-context-builder/internal/repository"
	"github.com/jengzang/personal-context-builder/internal/service"

	// Import profile models to register them
	_ "github.com/jengzang/personal-context-builder/internal/analysis/profiles"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"  env:"CONFIG_FILE" description:"Path to YAML configuration file"`
	Users      []string      `short:"u" long:"user"    description:"Limit the update to these users"`
	Models     []string      `short:"m" long:"model"   description:"Limit the update to these models"`
	Workers    int           `short:"w" long:"workers" env:"WORKERS"     description:"Worker count, overrides the configuration"`
	Token      string        `long:"issue-token"       description:"Print a bearer token for this subject and exit"`
	TokenTTL   time.Duration `long:"token-ttl"         description:"Validity of the issued token" default:"24h"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string, stdout io.Writer) int {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 1
	}

	opts.Logger.Setup()

	cfg, err := config.LoadFrom(opts.ConfigFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	if opts.Token != "" {
		token, err := middleware.IssueToken(cfg.JWTSecret, opts.Token, opts.TokenTTL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to sign token")
			return 1
		}
		fmt.Fprintln(stdout, token)
		return 0
	}

	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	table, err := mapping.Once(cfg.MappingFile)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.MappingFile).Msg("Falling back to the embedded region mapping")
	}
	pipeline, err := cfg.Pipeline(table)
	if err != nil {
		log.Error().Err(err).Msg("Invalid pipeline thresholds")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Init(ctx, database.Config{Path: cfg.DBPath}); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return 1
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	db := database.GetDB()

	routines := service.NewRoutineService(pipeline,
		repository.NewLocationRepository(db),
		repository.NewPlaceRepository(db),
		repository.NewProfileRepository(db),
		repository.NewRoutineRepository(db),
	)
	runner := service.NewRunner(routines, repository.NewBatchRepository(db), cfg.Workers)

	report, err := runner.Run(ctx, opts.Users, opts.Models)
	if report == nil {
		log.Error().Err(err).Msg("Batch failed")
		return 1
	}
	if err != nil {
		log.Error().Err(err).Msg("Batch interrupted")
	}

	log.Info().
		Str("run_id", report.RunID.String()).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("Batch done")
	if err != nil {
		return 1
	}
	return 0
}
