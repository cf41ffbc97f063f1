package cli

import (
	"github.com/spf13/cobra"
)

var (
	enrollKey string
)

func newEnrollCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll <image>...",
		Short: "Store reference signatures as the template for a key",
		Long: `Extract features from one or more reference scans and save them as the
template for a key. Descriptors from every scan are pooled into one template;
an existing template for the key is replaced.

Examples:
  sigverify enroll --key alice alice-1.png
  sigverify enroll --key alice alice-1.png alice-2.png alice-3.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEnroll,
	}

	cmd.Flags().StringVarP(&enrollKey, "key", "k", "", "template key (required)")

	return cmd
}

func runEnroll(cmd *cobra.Command, args []string) error {
	if err := requireKey(enrollKey); err != nil {
		return err
	}
	svc, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	res, err := svc.EnrollSamples(enrollKey, args...)
	if err != nil {
		return err
	}
	return renderEnroll(cmd.OutOrStdout(), cfg.Output.Format, res)
}
