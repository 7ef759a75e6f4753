package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/api"
	"github.com/jengzang/personal-context-builder/internal/config"
	"github.com/jengzang/personal-context-builder/internal/database"
	"github.com/jengzang/personal-context-builder/internal/handler"
	"github.com/jengzang/personal-context-builder/internal/logger"
	"github.com/jengzang/personal-context-builder/internal/mapping"
	"github.com/jengzang/personal-context-builder/internal/repository"
	"github.com/jengzang/personal-context-builder/internal/service"

	// Import profile models to register them
	_ "github.com/jengzang/personal-context-builder/internal/analysis/profiles"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to YAML configuration file"`
	Listen     string `short:"l" long:"listen" env:"LISTEN"      description:"Listen address, overrides the configured port"`
	Release    bool   `long:"release"          env:"GIN_RELEASE" description:"Run gin in release mode"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup always happens.
func run(args []string) int {
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
	if opts.Listen != "" {
		cfg.Port = opts.Listen
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret")
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

	locations := repository.NewLocationRepository(db)
	places := repository.NewPlaceRepository(db)
	batches := repository.NewBatchRepository(db)
	routines := service.NewRoutineService(pipeline, locations, places,
		repository.NewProfileRepository(db),
		repository.NewRoutineRepository(db),
	)

	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(ctx, cfg, api.Handlers{
		Stay:    handler.NewStayHandler(service.NewGeoService(locations, places)),
		Routine: handler.NewRoutineHandler(routines),
		Batch:   handler.NewBatchHandler(service.NewRunner(routines, batches, cfg.Workers), batches),
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.Port).
		Str("db", cfg.DBPath).
		Strs("models", analysis.AnalyzerNames()).
		Strs("labels", table.Labels()).
		Int("workers", cfg.Workers).
		Msg("Server starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return 1
	}
	log.Info().Msg("Server stopped")
	return 0
}
