package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "namerecall",
	Short: "Remember the names of people you meet",
	Long: `Name Recall keeps a private on-device gallery of people you know,
matches faces in new photos against it, and quizzes you on the names
you keep forgetting using spaced repetition.

Configuration is read from environment variables, with an optional
.env file in the working directory.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// A missing .env file is fine, the environment may already be set.
	cobra.OnInitialize(func() { _ = godotenv.Load() })
}
