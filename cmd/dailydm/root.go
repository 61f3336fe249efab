package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dhruvsoni1802/dailydm/internal/bot"
	"github.com/dhruvsoni1802/dailydm/internal/config"
	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// app holds what every command needs after startup
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	logFile io.Closer
}

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "dailydm",
		Short:         "Send today's direct message on TikTok",
		Long:          "dailydm picks today's message from a weekday table and sends it to one recipient through a local Chromium.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	runCmd := newRunCommand(&envFile)
	rootCmd.RunE = runCmd.RunE

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newServeCommand(&envFile))
	rootCmd.AddCommand(newPreviewCommand(&envFile))

	return rootCmd
}

// loadEnvFile applies envFile to the environment. A missing file is not an error.
func loadEnvFile(envFile string) error {
	// Values already in the environment win over the file
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	return nil
}

// startup loads the environment, configuration and logger, and creates the screenshots directory.
func startup(envFile string, console io.Writer) (*app, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, logFile, err := setupLogger(cfg, console)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.ScreenshotsDir, 0o755); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	return &app{cfg: cfg, logger: logger, logFile: logFile}, nil
}

func (a *app) Close() {
	a.logFile.Close()
}

// cookieStore opens the configured cookie backend. The returned func releases it.
// When Redis cannot be reached the cookie file is used instead.
func (a *app) cookieStore(ctx context.Context) (storage.CookieStore, func()) {
	fileStore := storage.NewFileCookieStore(a.cfg.CookiesFile)
	if a.cfg.CookieStore != config.CookieStoreRedis {
		return fileStore, func() {}
	}

	client, err := storage.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		a.logger.Warn("Redis cookie store unavailable, falling back to cookie file", "error", err, "path", fileStore.Path())
		return fileStore, func() {}
	}
	a.logger.Debug("using redis cookie store", "addr", a.cfg.RedisAddr)

	// Close the connection when the command is done with the store
	release := func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("failed to close redis connection", "error", err)
		}
	}
	return storage.NewRedisCookieStore(client, a.cfg.Username, a.cfg.CookieTTL), release
}

// runner wires a bot.Runner for this configuration
func (a *app) runner(store storage.CookieStore) *bot.Runner {
	return bot.NewRunner(a.cfg, bot.ChromiumLauncher(a.cfg), store, a.logger)
}
