package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jkubale/namerecall/internal/ai"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/spf13/cobra"
)

var peopleNoteCmd = &cobra.Command{
	Use:   "note <name> <photo-path>",
	Short: "Generate a memory-aid note for a person from a photo",
	Long: `Generate a short memory-aid note for a person using an AI vision model.

The most confident face in the photo is cropped and described by the
configured provider (AI_PROVIDER=openai or gemini). The resulting note
replaces the person's stored note unless --dry-run is given.

Examples:
  # Generate and store a note
  namerecall people note "Jana Svobodová" jana.jpg

  # Preview the note without saving it
  namerecall people note "Jana Svobodová" jana.jpg --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: runPeopleNote,
}

func init() {
	peopleCmd.AddCommand(peopleNoteCmd)

	peopleNoteCmd.Flags().Bool("dry-run", false, "Print the generated note without saving it")
}

func runPeopleNote(cmd *cobra.Command, args []string) error {
	name := args[0]
	photoPath := args[1]

	cfg, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER environment variable is required (openai or gemini)")
	}

	ctx := cmd.Context()
	person, err := peopleRepo.GetPersonByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	data, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", photoPath, err)
	}

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

	describer, err := ai.NewDescriber(ctx, cfg.AI.Provider, cfg.OpenAI.Token, cfg.Gemini.APIKey)
	if err != nil {
		return err
	}

	fmt.Printf("Describing face using %s...\n", describer.Name())
	note, err := describer.DescribeFace(ctx, best.Crop, person.Name)
	if err != nil {
		return fmt.Errorf("failed to generate note: %w", err)
	}

	text := note.Description
	if len(note.Cues) > 0 {
		text += "\nCues: " + strings.Join(note.Cues, ", ")
	}
	fmt.Printf("\n%s\n\n", text)

	if mustGetBool(cmd, "dry-run") {
		fmt.Println("Dry run: note not saved.")
		return nil
	}

	if err := peopleRepo.UpdatePerson(ctx, person.ID, person.Name, text); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	fmt.Printf("Note saved for %s\n", person.Name)
	return nil
}
