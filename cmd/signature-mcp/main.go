package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/signature-tools-mcp/internal/config"
	"github.com/ironsheep/signature-tools-mcp/internal/logger"
	"github.com/ironsheep/signature-tools-mcp/internal/server"
	"github.com/ironsheep/signature-tools-mcp/internal/verifier"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("signature-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("signature-mcp - MCP server for signature enrollment and verification")
			fmt.Println()
			fmt.Println("Usage: signature-mcp [config.yaml]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Configuration is read from the given file, else from")
			for _, p := range config.ConfigPaths {
				fmt.Printf("  %s\n", p)
			}
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  SIGVERIFY_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println("  SIGVERIFY_STORE_DIR=<dir>    Template directory")
			fmt.Println("  SIGVERIFY_THRESHOLD=<t>      Default decision threshold")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	var cfgPath string
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	// stdout is for MCP protocol; the logger writes to stderr
	cfg, err := config.NewLoader().LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signature-mcp: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("signature-mcp", cfg)
	log.Debug("Signature MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)

	svc, err := verifier.NewFromConfig(cfg, log.WithComponent("verifier"))
	if err != nil {
		log.Error("failed to start: %v", err)
		os.Exit(1)
	}

	srv := server.New(svc, log.WithComponent("mcp"))
	srv.SetVersion(Version)
	if err := srv.Run(); err != nil {
		log.Error("Server error: %v", err)
		os.Exit(1)
	}
}
