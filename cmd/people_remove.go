package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var peopleRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a person and all their face samples",
	Long: `Remove a person from the gallery. All of their reference face samples,
review progress, and review history are deleted with them.`,
	Args: cobra.ExactArgs(1),
	RunE: runPeopleRemove,
}

func init() {
	peopleCmd.AddCommand(peopleRemoveCmd)
}

func runPeopleRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	_, pool, peopleRepo, _, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	person, err := peopleRepo.GetPersonByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	if err := peopleRepo.DeletePerson(ctx, person.ID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}

	fmt.Printf("Removed %s (%d sample(s) deleted)\n", person.Name, len(person.Samples))
	return nil
}
