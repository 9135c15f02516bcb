package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jkubale/namerecall/internal/gallery"
	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/spf13/cobra"
)

var peopleSimilarCmd = &cobra.Command{
	Use:   "similar <photo-path>",
	Short: "Find gallery people similar to a face in a photo",
	Long: `Find the gallery people most similar to the face in a photo.

The most confident detected face is embedded and matched against every
stored sample. By default the search goes through an in-memory HNSW
index built from the gallery snapshot; --db pushes the nearest-neighbor
query into PostgreSQL instead and reports raw sample distances.

Examples:
  # Rank people by similarity to the face in the photo
  namerecall people similar face.jpg

  # Use the database-side vector search over individual samples
  namerecall people similar face.jpg --db --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runPeopleSimilar,
}

func init() {
	peopleCmd.AddCommand(peopleSimilarCmd)

	peopleSimilarCmd.Flags().Int("limit", 5, "Maximum number of results")
	peopleSimilarCmd.Flags().Bool("db", false, "Query sample vectors in PostgreSQL instead of the in-memory index")
}

func runPeopleSimilar(cmd *cobra.Command, args []string) error {
	photoPath := args[0]
	limit := mustGetInt(cmd, "limit")

	data, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", photoPath, err)
	}

	cfg, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	faceService := vision.NewServiceClient(cfg.Vision.URL)

	faces, err := faceService.DetectFaces(ctx, data)
	if err != nil {
		return fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return fmt.Errorf("no face detected in %s", photoPath)
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}

	probe, err := faceService.GenerateEmbedding(ctx, best.Crop)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if mustGetBool(cmd, "db") {
		matches, err := peopleRepo.FindSimilarSamples(ctx, probe, limit)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		fmt.Fprintln(w, "SAMPLE\tNAME\tDISTANCE")
		for _, m := range matches {
			fmt.Fprintf(w, "%d\t%s\t%.4f\n", m.SampleID, m.PersonName, m.Distance)
		}
		return w.Flush()
	}

	snapshot, err := peopleRepo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}
	if snapshot.Empty() {
		fmt.Println("The gallery has no face samples yet.")
		return nil
	}

	engine := match.NewEngine(match.Thresholds{
		AutoAccept:     cfg.Matching.AutoAccept,
		AmbiguousFloor: cfg.Matching.AmbiguousFloor,
		Exploratory:    cfg.Matching.Exploratory,
	})
	index := gallery.BuildIndex(snapshot)
	candidates, err := engine.FindMatchesIndexed(probe, snapshot, index, limit, 0)
	if err != nil {
		return fmt.Errorf("index search failed: %w", err)
	}

	fmt.Fprintln(w, "NAME\tSCORE\tCONFIDENCE")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", c.Name, c.Score, c.Tier)
	}
	return w.Flush()
}
