package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkubale/namerecall/internal/store"
	"github.com/jkubale/namerecall/internal/vision"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var peopleImportCmd = &cobra.Command{
	Use:   "import <folder>",
	Short: "Bulk-import people and reference photos from a folder",
	Long: `Bulk-import people from a folder of per-person subdirectories.

Each subdirectory name becomes a person's name and every photo inside it
becomes a reference sample for that person. Existing people (matched by
normalized name) get the new samples appended instead of being duplicated.

Expected layout:
  photos/
    Jana Svobodová/
      img1.jpg
      img2.jpg
    Petr Dvořák/
      petr.png

Example:
  namerecall people import ./photos`,
	Args: cobra.ExactArgs(1),
	RunE: runPeopleImport,
}

func init() {
	peopleCmd.AddCommand(peopleImportCmd)
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
	return supported[ext]
}

// importEntry is one photo file queued for a named person.
type importEntry struct {
	name string
	path string
}

// collectImportEntries walks the per-person subdirectories of root and
// returns one entry per image file.
func collectImportEntries(root string) ([]importEntry, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read folder %s: %w", root, err)
	}

	var entries []importEntry
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot read folder %s: %w", dir.Name(), err)
		}
		for _, file := range files {
			if file.IsDir() || !isImageFile(file.Name()) {
				continue
			}
			entries = append(entries, importEntry{
				name: dir.Name(),
				path: filepath.Join(root, dir.Name(), file.Name()),
			})
		}
	}
	return entries, nil
}

func runPeopleImport(cmd *cobra.Command, args []string) error {
	root := args[0]

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access folder %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	entries, err := collectImportEntries(root)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No image files found in per-person subdirectories.")
		return nil
	}
	fmt.Printf("Found %d photo(s) to import\n", len(entries))

	cfg, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	faceService := vision.NewServiceClient(cfg.Vision.URL)
	ctx := cmd.Context()

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	stored, skipped := 0, 0
	var failures []string
	for _, entry := range entries {
		person, err := peopleRepo.GetPersonByName(ctx, entry.name)
		if errors.Is(err, store.ErrNotFound) {
			id, createErr := peopleRepo.CreatePerson(ctx, entry.name, "", false)
			if createErr != nil {
				return fmt.Errorf("failed to create %s: %w", entry.name, createErr)
			}
			person, err = peopleRepo.GetPerson(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", entry.name, err)
		}

		deps := &sampleDeps{people: peopleRepo, detector: faceService, encoder: faceService, personID: person.ID}
		found, err := addSampleFromFile(cmd, deps, entry.path)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", entry.path, err))
		case found == 0:
			skipped++
		default:
			stored++
		}
		_ = bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("Imported %d sample(s), skipped %d photo(s) with no detectable face\n", stored, skipped)
	for _, failure := range failures {
		fmt.Printf("  failed: %s\n", failure)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d photo(s) failed to import", len(failures))
	}
	return nil
}
