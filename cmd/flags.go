package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// The flag helpers below panic on lookup errors. Every flag they read is
// registered in an init() in this package, so a failed lookup is a
// programming bug rather than a runtime condition worth an error return.

func mustGetBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	panicOnFlagErr(name, err)
	return v
}

func mustGetInt(cmd *cobra.Command, name string) int {
	v, err := cmd.Flags().GetInt(name)
	panicOnFlagErr(name, err)
	return v
}

func mustGetString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	panicOnFlagErr(name, err)
	return v
}

func mustGetFloat64(cmd *cobra.Command, name string) float64 {
	v, err := cmd.Flags().GetFloat64(name)
	panicOnFlagErr(name, err)
	return v
}

func panicOnFlagErr(name string, err error) {
	if err != nil {
		panic(fmt.Sprintf("flag --%s: %v", name, err))
	}
}
