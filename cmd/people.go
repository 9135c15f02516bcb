package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/config"
	"github.com/jkubale/namerecall/internal/store"
	"github.com/jkubale/namerecall/internal/store/postgres"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/spf13/cobra"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Manage the people gallery",
	Long:  `Commands for managing the people gallery: the names, notes, and reference face samples that scans and quizzes run against.`,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

// sampleDeps bundles the collaborators needed to turn a photo file into a
// stored reference sample for one person.
type sampleDeps struct {
	people   store.PeopleWriter
	detector vision.Detector
	encoder  vision.Encoder
	personID uuid.UUID
}

// openStores loads the configuration and connects the PostgreSQL
// repositories shared by the people subcommands. The caller owns the pool.
func openStores() (*config.Config, *postgres.Pool, *postgres.PeopleRepository, *postgres.ProgressRepository, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()
	peopleRepo := postgres.NewPeopleRepository(pool, cfg.Vision.Dim)
	if err := peopleRepo.VerifyEmbeddingDim(context.Background()); err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}
	return cfg, pool, peopleRepo, postgres.NewProgressRepository(pool), nil
}
