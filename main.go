package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CrowderSoup/vieira-boards/board"
	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/CrowderSoup/vieira-boards/export"
	"github.com/CrowderSoup/vieira-boards/handlers"
	"github.com/CrowderSoup/vieira-boards/services"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "vieira",
		Short: "Vieira Boards - local kanban backend with Gemini assistance",
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the database and loads the boards, seeding them on first run.
func openStore(ctx context.Context, cfg *Config) (*sql.DB, *database.DataService, *board.Store, error) {
	db, err := database.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	dataService := database.NewDataService(db)

	seed, err := database.LoadSeed(cfg.SeedFile)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	store := board.NewStore(dataService, board.Options{})
	if err := store.Load(ctx, seed); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to load boards: %w", err)
	}
	return db, dataService, store, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(envFile)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, dataService, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	authService := services.NewAuthService(dataService, cfg.JWTSecret)
	if err := authService.Restore(ctx); err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" {
		log.Printf("Warning: GEMINI_API_KEY not set, AI features will fail")
	}
	gateway, err := services.NewGateway(ctx, services.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		BaseURL:  cfg.GeminiBaseURL,
		Model:    cfg.GeminiModel,
		ProModel: cfg.GeminiProModel,
	})
	if err != nil {
		return err
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run(ctx)
	store.Subscribe(hub.BroadcastBoard)

	r := handlers.NewRouter(handlers.Deps{
		Store:          store,
		Auth:           authService,
		Gateway:        gateway,
		Notifier:       services.NewNotifier(services.LogSender{}),
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// AI calls can take a while, so the write timeout is generous.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [board-id]",
		Short: "Write a board's task status spreadsheet (defaults to the active board)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(envFile)
			if err != nil {
				return err
			}
			boardID := ""
			if len(args) == 1 {
				boardID = args[0]
			}
			return runExport(cmd.Context(), cfg, boardID, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <board title>.xlsx)")
	return cmd
}

func runExport(ctx context.Context, cfg *Config, boardID, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, _, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := store.Board(boardID)
	if err != nil {
		return err
	}
	if output == "" {
		output = export.Filename(b)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := export.WriteSpreadsheet(f, b, store.DoneColumn()); err != nil {
		return err
	}
	fmt.Printf("Exported %d task(s) from %q to %s\n", len(b.Tasks), b.Title, output)
	return f.Close()
}
