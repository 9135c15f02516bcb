package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jkubale/namerecall/internal/vision"
	"github.com/spf13/cobra"
)

var peopleAddCmd = &cobra.Command{
	Use:   "add <name> [photo-path...]",
	Short: "Add a person to the gallery",
	Long: `Add a person to the gallery, optionally with reference photos.

Each photo is sent to the face service; the most confident detected face
becomes a reference sample for the new person. Photos without a detectable
face are reported and skipped.

Examples:
  # Add a person without samples
  namerecall people add "Jana Svobodová"

  # Add a person with two reference photos
  namerecall people add "Jana Svobodová" jana1.jpg jana2.jpg

  # Register yourself so scans can filter you out
  namerecall people add "Me" --self selfie.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPeopleAdd,
}

func init() {
	peopleCmd.AddCommand(peopleAddCmd)

	peopleAddCmd.Flags().String("note", "", "Free-form note about the person")
	peopleAddCmd.Flags().Bool("self", false, "Mark this person as yourself")
}

// addSampleFromFile detects the most confident face in a photo file and
// stores it as a reference sample. Returns the number of faces found.
func addSampleFromFile(cmd *cobra.Command, deps *sampleDeps, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read %s: %w", path, err)
	}

	ctx := cmd.Context()
	faces, err := deps.detector.DetectFaces(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("face detection failed for %s: %w", path, err)
	}
	if len(faces) == 0 {
		return 0, nil
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}

	embedding, err := deps.encoder.GenerateEmbedding(ctx, best.Crop)
	if err != nil {
		return len(faces), fmt.Errorf("embedding failed for %s: %w", path, err)
	}

	cropKey := fmt.Sprintf("%s-%d", deps.personID, time.Now().UnixNano())
	if _, err := deps.people.AddFaceSample(ctx, deps.personID, embedding, cropKey); err != nil {
		return len(faces), fmt.Errorf("failed to store sample from %s: %w", path, err)
	}
	return len(faces), nil
}

func runPeopleAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	photoPaths := args[1:]

	cfg, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	id, err := peopleRepo.CreatePerson(ctx, name, mustGetString(cmd, "note"), mustGetBool(cmd, "self"))
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	fmt.Printf("Added %s (%s)\n", name, id)

	if len(photoPaths) == 0 {
		return nil
	}

	faceService := vision.NewServiceClient(cfg.Vision.URL)
	deps := &sampleDeps{people: peopleRepo, detector: faceService, encoder: faceService, personID: id}

	added := 0
	for _, path := range photoPaths {
		found, err := addSampleFromFile(cmd, deps, path)
		if err != nil {
			return err
		}
		if found == 0 {
			fmt.Printf("  %s: no face detected, skipped\n", path)
			continue
		}
		added++
		fmt.Printf("  %s: sample stored (%d face(s) found)\n", path, found)
	}
	fmt.Printf("Stored %d sample(s) for %s\n", added, name)
	return nil
}
