// ABOUTME: Root command for steam-hour-farmer
// ABOUTME: Loads configuration and runs the session controller until interrupted

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/markalston/steam-hour-farmer/clock"
	"github.com/markalston/steam-hour-farmer/config"
	"github.com/markalston/steam-hour-farmer/logger"
	"github.com/markalston/steam-hour-farmer/services"
	"github.com/markalston/steam-hour-farmer/steamclient"
	"github.com/markalston/steam-hour-farmer/styles"
)

var envFile string

const defaultEnvFile = ".env"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "steam-hour-farmer",
	Short: "Keep a Steam account in-game to accrue playtime",
	Long: `steam-hour-farmer logs in to Steam and keeps reporting the configured games
as being played. It pauses while another session plays on the account and
logs back in after being kicked or rate limited.

Environment Variables:
  ACCOUNT_NAME          Steam account name (required)
  PASSWORD              Steam password (required)
  GAMES                 Comma-separated app IDs or non-Steam titles (required)
  PERSONA               Persona state to set after login, 0-7 (optional)
  SHARED_SECRET         Mobile authenticator shared secret (optional)
  MIN_REQUEST_INTERVAL  Minimum spacing of requests (default: 60s)
  LOGIN_INTERVAL        Login re-check interval (default: 10m)
  REFRESH_INTERVAL      Games refresh interval (default: 5m)
  RATE_LIMIT_COOLDOWN   Wait after being rate limited (default: 31m)
  LOGIN_GRACE           Delay before farming after login (default: 3s)
  DATA_DIR              Machine auth storage (default: SteamData)
  LOG_LEVEL, LOG_FORMAT Diagnostic logging (default: info, text)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runFarmer,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before reading the environment")
}

func runFarmer(cmd *cobra.Command, _ []string) error {
	logger.Init(cmd.ErrOrStderr())
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render("steam-hour-farmer"))

	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if len(cfg.Games) == 0 {
		slog.Warn("Could not find any games to play. Maybe this is a mistake?")
	}
	slog.Info("Configuration loaded",
		"account", cfg.AccountName,
		"games", len(cfg.Games),
		"shared_secret", cfg.HasSharedSecret(),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := steamclient.New(cfg.DataDir)
	ctrl := services.NewController(
		controllerOptions(cfg),
		client,
		services.NewConsolePrompter(cmd.InOrStdin(), out),
		services.NewNotifier(out),
		clock.Real(),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(ctx) })
	g.Go(func() error { return ctrl.Run(ctx) })

	err = g.Wait()
	if err == nil || errors.Is(err, context.Canceled) {
		slog.Info("Shutting down")
		return nil
	}
	return err
}

// Reported reports whether err has already been shown to the operator,
// so the caller only needs to set the exit status.
func Reported(err error) bool {
	var fatal *services.FatalError
	return errors.As(err, &fatal) && fatal.Notified
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. A missing default file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && path == defaultEnvFile {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func controllerOptions(cfg *config.Config) services.Options {
	return services.Options{
		AccountName:        cfg.AccountName,
		Password:           cfg.Password,
		SharedSecret:       cfg.SharedSecret,
		Persona:            cfg.Persona,
		Games:              cfg.Games,
		MinRequestInterval: cfg.MinRequestInterval,
		LoginInterval:      cfg.LoginInterval,
		RefreshInterval:    cfg.RefreshInterval,
		RateLimitCooldown:  cfg.RateLimitCooldown,
		LoginGrace:         cfg.LoginGrace,
	}
}
