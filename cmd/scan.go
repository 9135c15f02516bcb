package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jkubale/namerecall/internal/match"
	"github.com/jkubale/namerecall/internal/scan"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan <photo-path>",
	Short: "Identify faces in a photo against the gallery",
	Long: `Identify faces in a photo by matching them against the people gallery.

Each detected face is embedded and compared to every stored reference
sample. A person's score is their best sample's score, classified as
high, ambiguous, or no-match confidence. Nothing from the scan is
persisted.

Examples:
  # Scan a photo
  namerecall scan group.jpg

  # Only show candidates above a custom score
  namerecall scan group.jpg --threshold 0.6

  # Output as JSON
  namerecall scan group.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Float64("threshold", 0, "Minimum similarity score for candidates (0 = exploratory default)")
	scanCmd.Flags().Int("top-k", 3, "Maximum match candidates per detected face")
	scanCmd.Flags().Bool("json", false, "Output as JSON")
}

// scanOutput is the JSON shape of a one-shot scan.
type scanOutput struct {
	Phase string          `json:"phase"`
	Error string          `json:"error,omitempty"`
	Faces []scanFaceEntry `json:"faces,omitempty"`
}

type scanFaceEntry struct {
	Box     vision.Box       `json:"box"`
	Matches []scanMatchEntry `json:"matches"`
}

type scanMatchEntry struct {
	PersonID string  `json:"person_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Tier     string  `json:"tier"`
}

func scanOutputFromState(state scan.State) scanOutput {
	out := scanOutput{Phase: state.Phase.String(), Error: state.Err}
	for _, face := range state.Results {
		entry := scanFaceEntry{Box: face.Box, Matches: []scanMatchEntry{}}
		for _, m := range face.Matches {
			entry.Matches = append(entry.Matches, scanMatchEntry{
				PersonID: m.IdentityID.String(),
				Name:     m.Name,
				Score:    m.Score,
				Tier:     string(m.Tier),
			})
		}
		out.Faces = append(out.Faces, entry)
	}
	return out
}

func printScanTable(out scanOutput) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FACE\tNAME\tSCORE\tCONFIDENCE")
	for i, face := range out.Faces {
		if len(face.Matches) == 0 {
			fmt.Fprintf(w, "%d\t(no match)\t-\t-\n", i+1)
			continue
		}
		for _, m := range face.Matches {
			fmt.Fprintf(w, "%d\t%s\t%.3f\t%s\n", i+1, m.Name, m.Score, m.Tier)
		}
	}
	return w.Flush()
}

func runScan(cmd *cobra.Command, args []string) error {
	photoPath := args[0]

	data, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", photoPath, err)
	}

	cfg, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	threshold := mustGetFloat64(cmd, "threshold")
	if threshold == 0 {
		threshold = cfg.Matching.Exploratory
	}

	faceService := vision.NewServiceClient(cfg.Vision.URL)
	engine := match.NewEngine(match.Thresholds{
		AutoAccept:     cfg.Matching.AutoAccept,
		AmbiguousFloor: cfg.Matching.AmbiguousFloor,
		Exploratory:    cfg.Matching.Exploratory,
	})
	orchestrator := scan.NewOrchestrator(
		faceService, faceService, engine, peopleRepo,
		mustGetInt(cmd, "top-k"), threshold,
	)

	if err := orchestrator.ScanPhoto(cmd.Context(), scan.NewBytesHandle(data)); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	state := orchestrator.State()
	out := scanOutputFromState(state)

	if mustGetBool(cmd, "json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	switch state.Phase {
	case scan.PhaseNoFaceDetected:
		fmt.Println("No face detected in the photo.")
		return nil
	case scan.PhaseError:
		return fmt.Errorf("scan failed: %s", state.Err)
	}

	fmt.Printf("Found %d face(s)\n\n", len(out.Faces))
	return printScanTable(out)
}
