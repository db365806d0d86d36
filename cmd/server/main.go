package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pomodoro-backend/internal/config"
	"pomodoro-backend/internal/handlers"
	"pomodoro-backend/internal/logging"
	"pomodoro-backend/internal/middleware"
	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/router"
	"pomodoro-backend/internal/services"
	"pomodoro-backend/internal/websocket"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pomodoro-server",
		Short:         "Adaptive pomodoro session tracker",
		Long:          `pomodoro-server records focus/rest sessions per theme and suggests the next interval length from your last result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.PersistentFlags().String("user", "", "user id to act as (defaults to DEFAULT_USER_ID)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the session store schema and exit",
		RunE:  runMigrate,
	}

	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the next recommended focus/rest interval for a theme",
		RunE:  runRecommend,
	}
	recommendCmd.Flags().String("theme", "", "session theme (defaults to DEFAULT_THEME)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print cumulative focus minutes per stat",
		RunE:  runStats,
	}

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Append a completed session",
		RunE:  runRecord,
	}
	recordCmd.Flags().String("theme", "", "session theme (defaults to DEFAULT_THEME)")
	recordCmd.Flags().Bool("focus", true, "record a focus interval (false for rest)")
	recordCmd.Flags().Int("planned", 25, "planned duration in minutes")
	recordCmd.Flags().Int("actual", 25, "actual duration in minutes")

	rootCmd.AddCommand(serveCmd, migrateCmd, recommendCmd, statsCmd, recordCmd)
	return rootCmd
}

func loadConfig() (*config.Config, func()) {
	cfg := config.Load()
	closer := logging.Setup(cfg.LogFile)
	return cfg, func() { closer.Close() }
}

func userFlag(cmd *cobra.Command, cfg *config.Config) string {
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		return user
	}
	return cfg.DefaultUserID
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("🚀 Starting Pomodoro Backend...")

	cfg, closeLog := loadConfig()
	defer closeLog()
	log.Println("✓ Environment variables loaded")

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// ──── WebSocket Hub ────
	var pubsub *redis.Client
	if a.redis != nil {
		pubsub = a.redis.PubSub
	}
	wsHub := websocket.NewHub(pubsub)
	defer wsHub.Close()
	log.Println("✓ WebSocket hub started")

	// ──── Services & Handlers ────
	sessionService := services.NewSessionService(a.store, wsHub, cfg.DefaultTheme)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	writeLimiter := middleware.NewRateLimiter(cfg.WriteRateLimit, time.Minute)
	defer writeLimiter.Stop()

	r := router.New(sessionHandler, wsHub, router.Options{
		FrontendURL:   cfg.FrontendURL,
		DefaultUserID: cfg.DefaultUserID,
		WriteLimiter:  writeLimiter,
		TrustProxy:    cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("✓ Pomodoro Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(sigCtx, server)
}

// serve runs server until ctx is done, then shuts it down gracefully. A
// listen failure is returned immediately.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, closeLog := loadConfig()
	defer closeLog()

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.Close()
	log.Printf("✓ %s session store is up to date", cfg.StoreDriver)
	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, closeLog := loadConfig()
	defer closeLog()

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	theme, _ := cmd.Flags().GetString("theme")
	svc := services.NewSessionService(a.store, nil, cfg.DefaultTheme)
	rec, err := svc.GetRecommendation(cmd.Context(), userFlag(cmd, cfg), theme)
	if err != nil {
		return err
	}
	return printJSON(cmd, rec)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, closeLog := loadConfig()
	defer closeLog()

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := services.NewSessionService(a.store, nil, cfg.DefaultTheme)
	stats, err := svc.GetStats(cmd.Context(), userFlag(cmd, cfg))
	if err != nil {
		return err
	}
	return printJSON(cmd, stats)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, closeLog := loadConfig()
	defer closeLog()

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	theme, _ := cmd.Flags().GetString("theme")
	isFocus, _ := cmd.Flags().GetBool("focus")
	planned, _ := cmd.Flags().GetInt("planned")
	actual, _ := cmd.Flags().GetInt("actual")

	svc := services.NewSessionService(a.store, nil, cfg.DefaultTheme)
	id, err := svc.RecordSession(cmd.Context(), userFlag(cmd, cfg), models.EndSessionRequest{
		IsFocus:         &isFocus,
		Theme:           theme,
		PlannedDuration: &planned,
		ActualDuration:  &actual,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]int64{"id": id})
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
