package cli

import (
	"github.com/spf13/cobra"
)

var (
	verifyKey       string
	verifyThreshold float64
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <image>...",
		Short: "Verify signatures against an enrolled template",
		Long: `Score each scan against the template stored for a key. A scan is authentic
when the mean cosine similarity is strictly greater than the threshold.

A missing template or an unreadable image is reported as an error, never as a
"not authentic" result.

Examples:
  sigverify verify --key alice cheque-0042.png
  sigverify verify --key alice --threshold 0.8 -o json scan.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().StringVarP(&verifyKey, "key", "k", "", "template key (required)")
	cmd.Flags().Float64VarP(&verifyThreshold, "threshold", "t", 0, "decision threshold in [-1, 1] (default from config)")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := requireKey(verifyKey); err != nil {
		return err
	}
	svc, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	threshold := thresholdFlag(cmd, verifyThreshold, svc)

	decisions, err := svc.VerifySamples(verifyKey, threshold, args...)
	if err != nil {
		return err
	}
	for i, d := range decisions {
		if err := renderDecision(cmd.OutOrStdout(), cfg.Output.Format, verifyKey, args[i], d); err != nil {
			return err
		}
	}
	return nil
}
