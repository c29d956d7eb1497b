package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-nuggeteval/internal/application"
)

func newStdsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stds <summary_dir> <output_file>",
		Short: "Per-topic standard deviation of precision and recall across runs",
		Long: `Stds reads every *.json run summary in summary_dir and writes, per
request_id, the population standard deviation of precision and of recall
across the runs that scored it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := global.logger("info")

			devs, err := application.ComputeDeviations(args[0])
			if err != nil {
				return err
			}
			if err := application.WriteDeviations(args[1], devs); err != nil {
				return err
			}
			logger.Info().Int("topics", len(devs)).Str("output", args[1]).Msg("deviations written")
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote deviations for %d topics to %s\n", len(devs), args[1])
			return nil
		},
	}
}
