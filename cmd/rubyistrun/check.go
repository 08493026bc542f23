package main

import (
	"fmt"
	"io"

	"rubyistrun/internal/content"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate content and print entry counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Load leniently so every invalid entry is reported, not just the first batch.
			result, err := a.loader(false).Load(cmd.Context())
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), result)
		},
	}
}

func report(w io.Writer, result *content.Result) error {
	for _, c := range content.Collections() {
		fmt.Fprintf(w, "%-8s %d\n", c, len(result.Collection(c)))
	}
	for _, e := range result.Skipped {
		fmt.Fprintf(w, "invalid: %v\n", e)
	}
	if n := len(result.Skipped); n > 0 {
		return fmt.Errorf("%d invalid content entries", n)
	}
	return nil
}
