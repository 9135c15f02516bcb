package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/quiz"
	"github.com/jkubale/namerecall/internal/schedule"
	"github.com/jkubale/namerecall/internal/store"
	"github.com/jkubale/namerecall/internal/store/postgres"
	"github.com/spf13/cobra"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Run a name quiz in the terminal",
	Long: `Run an interactive name quiz in the terminal.

Each trial shows multiple choice name options for one person. Answer by
number or by typing the name; press Enter alone for "don't know" and
type "s" to skip a trial without affecting your review schedule.

Examples:
  # Quiz over the whole gallery
  namerecall quiz

  # Quiz only the people whose review is due
  namerecall quiz --review`,
	Args: cobra.NoArgs,
	RunE: runQuiz,
}

func init() {
	rootCmd.AddCommand(quizCmd)

	quizCmd.Flags().Bool("review", false, "Quiz only people due for review")
}

// loadQuizPool builds the quiz pool from the gallery, attaching review state
// to people who have been practiced before.
func loadQuizPool(ctx context.Context, peopleRepo *postgres.PeopleRepository, progressRepo *postgres.ProgressRepository) ([]quiz.Person, error) {
	people, err := peopleRepo.ListPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	states, err := progressRepo.ListStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load review progress: %w", err)
	}

	pool := make([]quiz.Person, 0, len(people))
	for _, p := range people {
		if !p.HasSamples() {
			continue
		}
		qp := quiz.Person{ID: p.ID, Name: p.Name, IsSelf: p.IsSelf, CropKey: p.Samples[0].CropKey}
		if st, ok := states[p.ID]; ok {
			qp.Practiced = true
			qp.State = st
		}
		pool = append(pool, qp)
	}
	return pool, nil
}

// promptAnswer reads one answer from the terminal. A numeric answer picks
// from the options; "s" skips; an empty line means "don't know".
func promptAnswer(reader *bufio.Reader, options []string) (choice string, skip bool, err error) {
	fmt.Print("> ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", false, err
	}
	line = strings.TrimSpace(line)

	if strings.EqualFold(line, "s") {
		return "", true, nil
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(options) {
		return options[n-1], false, nil
	}
	return line, false, nil
}

func runQuiz(cmd *cobra.Command, args []string) error {
	_, pool, peopleRepo, progressRepo, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := cmd.Context()
	quizPool, err := loadQuizPool(ctx, peopleRepo, progressRepo)
	if err != nil {
		return err
	}

	mode := quiz.ModeAll
	if mustGetBool(cmd, "review") {
		mode = quiz.ModeReview
	}

	recorder := func(personID uuid.UUID, correct bool, latency time.Duration, now time.Time) error {
		st, _, err := progressRepo.GetState(ctx, personID)
		if err != nil {
			return err
		}
		if err := progressRepo.SaveState(ctx, personID, schedule.Record(st, correct, now)); err != nil {
			return err
		}
		return progressRepo.RecordReview(ctx, store.Review{
			PersonID:  personID,
			Correct:   correct,
			LatencyMS: latency.Milliseconds(),
		})
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	session, err := quiz.NewSession(quizPool, mode, recorder, rng, nil)
	if errors.Is(err, quiz.ErrEmptyPool) {
		return errors.New("nobody to quiz; add people with face samples first")
	}
	if err != nil {
		return fmt.Errorf("failed to start quiz: %w", err)
	}

	fmt.Printf("Quiz started: %d trial(s). Answer by number or name, Enter for \"don't know\", \"s\" to skip.\n\n", session.Len())

	reader := bufio.NewReader(os.Stdin)
	trialNum := 0
	for {
		trial, ok := session.Current()
		if !ok {
			break
		}
		trialNum++

		fmt.Printf("Trial %d/%d: who is this?\n", trialNum, session.Len())
		for i, option := range trial.Options {
			fmt.Printf("  %d) %s\n", i+1, option)
		}

		choice, skip, err := promptAnswer(reader, trial.Options)
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		if skip {
			session.Skip()
			fmt.Println("Skipped.")
			fmt.Println()
			continue
		}

		correct, err := session.Answer(choice)
		if err != nil {
			fmt.Printf("Warning: failed to record the answer: %v\n", err)
		}
		if correct {
			fmt.Println("Correct!")
		} else {
			fmt.Printf("Wrong. It was %s.\n", trial.Person.Name)
		}
		fmt.Println()
	}

	stats := session.Stats()
	fmt.Printf("Done. %d/%d correct (%.0f%%)\n", stats.CorrectAttempts, stats.TotalAttempts, stats.Accuracy()*100)
	return nil
}
