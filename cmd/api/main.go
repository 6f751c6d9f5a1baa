package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tracker-api/internal/api"
	"tracker-api/internal/config"
	"tracker-api/internal/store"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

type app struct {
	config   *config.Config
	store    store.Store
	handlers *api.Handlers
}

var rootCmd = &cobra.Command{
	Use:   "tracker-api",
	Short: "Personal time tracking API",
	Long: `tracker-api serves projects, tasks, time entries, moments, habits and
prime/review items over HTTP. Running it without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and exit",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	s, err := store.NewStore(cfg.Database.URL, store.WithSwapRetries(cfg.Database.SwapRetries))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	log.Printf("database migrated")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	log.Printf("database initialized")

	if cfg.Clerk.SecretKey != "" {
		clerk.SetKey(cfg.Clerk.SecretKey)
		log.Printf("clerk authentication enabled")
	} else {
		log.Printf("warning: no CLERK_SECRET_KEY, all requests run as %s", cfg.Clerk.DevUserEmail)
	}

	primes := api.NewPrimeService(s, api.NewCache(cfg.Cache.CategoryTTL))
	reviews := api.NewReviewService(s)

	app := &app{
		config:   cfg,
		store:    s,
		handlers: api.NewHandlers(primes, reviews, s),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on :%d", cfg.Server.Port)
	return app.serve(ctx)
}
