package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkubale/namerecall/internal/config"
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/scan"
	"github.com/jkubale/namerecall/internal/store/postgres"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/jkubale/namerecall/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Name Recall web server.
The server exposes the REST API used by the scan screen, the people
gallery, and the name quiz.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("top-k", 3, "Maximum match candidates returned per detected face")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	peopleRepo := postgres.NewPeopleRepository(pool, cfg.Vision.Dim)
	if err := peopleRepo.VerifyEmbeddingDim(cmd.Context()); err != nil {
		pool.Close()
		return err
	}
	progressRepo := postgres.NewProgressRepository(pool)

	faceService := vision.NewServiceClient(cfg.Vision.URL)
	engine := match.NewEngine(match.Thresholds{
		AutoAccept:     cfg.Matching.AutoAccept,
		AmbiguousFloor: cfg.Matching.AmbiguousFloor,
		Exploratory:    cfg.Matching.Exploratory,
	})
	orchestrator := scan.NewOrchestrator(
		faceService, faceService, engine, peopleRepo,
		mustGetInt(cmd, "top-k"), cfg.Matching.Exploratory,
	)

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(web.Deps{
		People:       peopleRepo,
		Progress:     progressRepo,
		Detector:     faceService,
		Encoder:      faceService,
		Orchestrator: orchestrator,
	}, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		if err := pool.Close(); err != nil {
			fmt.Printf("Error closing database pool: %v\n", err)
		}
	}()

	fmt.Printf("Starting Name Recall API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
