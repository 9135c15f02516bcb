package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List everyone in the gallery",
	Long: `List everyone in the gallery with their sample counts and review
schedule. People without face samples cannot be matched or quizzed.`,
	Args: cobra.NoArgs,
	RunE: runPeopleList,
}

func init() {
	peopleCmd.AddCommand(peopleListCmd)
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	_, pool, peopleRepo, progressRepo, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	people, err := peopleRepo.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	states, err := progressRepo.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load review progress: %w", err)
	}

	if len(people) == 0 {
		fmt.Println("The gallery is empty. Add someone with 'namerecall people add'.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES\tLAST SEEN\tNEXT REVIEW\tACCURACY")
	for _, p := range people {
		lastSeen := "never"
		if !p.LastSeen.IsZero() {
			lastSeen = p.LastSeen.Format("2006-01-02")
		}

		nextReview := "-"
		accuracy := "-"
		if st, ok := states[p.ID]; ok {
			if st.NeedsReview(now) {
				nextReview = "due"
			} else {
				nextReview = st.NextReview.Format("2006-01-02")
			}
			accuracy = fmt.Sprintf("%.0f%%", st.Accuracy()*100)
		}

		name := p.Name
		if p.IsSelf {
			name += " (you)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", name, len(p.Samples), lastSeen, nextReview, accuracy)
	}
	return w.Flush()
}
