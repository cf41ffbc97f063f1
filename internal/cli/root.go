package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ironsheep/signature-tools-mcp/internal/config"
	"github.com/ironsheep/signature-tools-mcp/internal/logger"
	"github.com/ironsheep/signature-tools-mcp/internal/store"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

var (
	cfgFile   string
	verbose   bool
	storeDir  string
	outputFmt string
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sigverify",
		Short: "Offline handwritten signature verification",
		Long: `sigverify enrolls reference signatures under a key and verifies new scans
against them.

Each image is binarized, described by local gradient features and compared to
the stored template by mean cosine similarity. A scan is authentic when the
score is strictly greater than the threshold (default 0.7).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "template directory (overrides storage.dir)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(newEnrollCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newTemplatesCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newMenuCommand())
	rootCmd.AddCommand(newServeCommand(version))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// PrintError writes err in the "error [kind]: message" form used by every
// command. Errors outside the verifier kinds print without a kind.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, formatError(err))
}

func formatError(err error) string {
	if kind := verifier.Kind(err); kind != "" {
		return errorStyle.Render("error ["+kind+"]:") + " " + err.Error()
	}
	return errorStyle.Render("error:") + " " + err.Error()
}

// loadConfig resolves the configuration and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Output.Verbose = true
	}
	if storeDir != "" {
		cfg.Storage.Backend = store.BackendFile
		cfg.Storage.Dir = storeDir
	}
	if f := cmd.Flag("output"); f != nil && f.Changed {
		cfg.Output.Format = outputFmt
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads the configuration and builds the service every command runs on.
func setup(cmd *cobra.Command) (*verifier.Service, *config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New("sigverify", cfg).WithWriter(cmd.ErrOrStderr())

	svc, err := verifier.NewFromConfig(cfg, log.WithComponent("verifier"))
	if err != nil {
		return nil, nil, nil, err
	}
	log.DebugWithFields("configuration loaded", []logger.Field{
		logger.F("extractor", cfg.Extractor.Name),
		logger.F("backend", cfg.Storage.Backend),
		logger.F("threshold", cfg.Matcher.Threshold),
	})
	return svc, cfg, log, nil
}

// thresholdFlag returns the --threshold value when given, else the configured default.
func thresholdFlag(cmd *cobra.Command, value float64, svc *verifier.Service) float64 {
	if f := cmd.Flags().Lookup("threshold"); f != nil && f.Changed {
		return value
	}
	return svc.Threshold()
}

func requireKey(key string) error {
	if key == "" {
		return fmt.Errorf("--key is required: %w", store.ErrInvalidKey)
	}
	return nil
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sigverify %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
