package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/footprintai/backend/internal/api"
	"github.com/footprintai/backend/internal/config"
	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/history"
	"github.com/footprintai/backend/internal/jobs"
	"github.com/footprintai/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "footprintd",
	Short: "AI-assisted PCB footprint extraction service",
	Long: `footprintd extracts PCB footprints from datasheet package drawings
using a vision model, then emits Altium outputs: an ASCII .PcbLib
document and a DelphiScript project that recreates the footprint.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP server",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate [extraction.json]",
	Short: "Generate Altium outputs from a saved extraction JSON",
	Long: `Reads raw model output (or a saved extraction response) from a JSON
file, normalizes it, and writes <name>.PcbLib, <name>.pas, and
<name>.PrjScr into the output directory. Useful for re-running
generation offline without the API server.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "footprintd.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	generateCmd.Flags().StringP("out", "o", ".", "output directory for generated files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	jobMgr := jobs.NewManager()

	// Background job cleanup
	go func() {
		interval := time.Duration(cfg.Jobs.CleanupIntervalMinutes) * time.Minute
		maxAge := time.Duration(cfg.Jobs.ExpirationMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if removed := jobMgr.CleanupExpired(maxAge); removed > 0 {
				logger.Info("cleaned up expired jobs", zap.Int("removed", removed))
			}
		}
	}()

	extractor, err := extraction.NewClient(cmd.Context(), extraction.Config{
		APIKey:          cfg.Extraction.APIKey,
		Model:           cfg.Extraction.Model,
		IncludeExamples: cfg.Extraction.IncludeExamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize extraction client: %w", err)
	}
	defer extractor.Close()

	var hist api.HistoryRecorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.GetDataDir())
		if err != nil {
			logger.Warn("history store unavailable, continuing without it", zap.Error(err))
		} else {
			defer store.Close()
			hist = store
			logger.Info("history store opened", zap.String("path", store.Path()))
		}
	}

	h := api.NewHandler(fileStore, jobMgr, extractor, hist, cfg, logger, Version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Logging.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/api/status"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			// Extraction and upload calls run far longer than the
			// read timeout; they carry their own deadlines.
			path := c.Request().URL.Path
			return strings.Contains(path, "/extract") ||
				strings.Contains(path, "/upload") ||
				strings.Contains(path, "/detect-standard")
		},
		ErrorMessage: "Request timeout - query took too long",
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	api.RegisterRoutes(e, h)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("server starting",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("addr", cfg.GetServerAddr()),
		zap.String("dataDir", cfg.GetDataDir()),
		zap.String("model", extractor.Model()))

	return e.StartServer(s)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	return generateFromFile(args[0], outDir)
}
