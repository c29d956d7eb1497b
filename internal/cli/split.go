package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-nuggeteval/infrastructure/nuggets"
)

func newSplitCmd(global *globalOptions) *cobra.Command {
	var langs []string

	cmd := &cobra.Command{
		Use:   "split <bank_file> <output_dir>",
		Short: "Split an assessor nugget bank into one file per source language",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := global.logger("info")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open nugget bank: %w", err)
			}
			defer f.Close()

			stats, err := nuggets.Split(cmd.Context(), f, args[1], langs, &logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			written := make([]string, 0, len(stats.Written))
			for lang := range stats.Written {
				written = append(written, lang)
			}
			sort.Strings(written)
			for _, lang := range written {
				fmt.Fprintf(out, "%s: %d\n", lang, stats.Written[lang])
			}
			fmt.Fprintf(out, "skipped: %d\n", stats.Skipped)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&langs, "langs", nuggets.DefaultLanguages, "source languages to keep")
	return cmd
}
