package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ironsheep/signature-tools-mcp/internal/imaging"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

var (
	inspectOut string
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <image>",
		Short: "Show what the pipeline sees in a scan",
		Long: `Preprocess a scan and report its keypoints and connected strokes without
touching the template store. With --out, every preprocessing stage and a
keypoint overlay are written to the directory as PNGs.

Examples:
  sigverify inspect scan.png
  sigverify inspect --out ./debug scan.png`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().StringVar(&inspectOut, "out", "", "directory for stage PNGs")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	svc, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	insp, err := svc.Inspect(path)
	if err != nil {
		return err
	}

	var files []string
	if inspectOut != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		files, err = verifier.WriteStages(insp.Stages, inspectOut, base)
		if err != nil {
			return err
		}
		overlay := filepath.Join(inspectOut, fmt.Sprintf("%s-keypoints-%s.png", base, uuid.NewString()[:8]))
		if err := imaging.SavePNG(verifier.KeypointOverlay(insp.Stages.Result, insp.Keypoints, false), overlay); err != nil {
			return err
		}
		files = append(files, overlay)
	}
	return renderInspection(cmd.OutOrStdout(), cfg.Output.Format, insp, files)
}
