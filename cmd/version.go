package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/parley0/parley/internal/config"
)

// Set at build time via -ldflags.
var (
	AppVersion = "dev"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and environment information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("parley %s\n", AppVersion)
		fmt.Printf("  commit:  %s\n", GitCommit)
		fmt.Printf("  built:   %s\n", BuildTime)
		fmt.Printf("  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Println()

		if cfg, err := config.Load(); err == nil {
			fmt.Printf("  model:    %s\n", cfg.ModelName)
			fmt.Printf("  storage:  %s\n", cfg.Storage)
			fmt.Printf("  language: %s\n", cfg.Language)
		}
		fmt.Printf("  api key:  %s\n", describeAPIKey(os.Getenv("GEMINI_API_KEY")))
	},
}

// describeAPIKey reports whether the Gemini API key is configured
// without printing the key itself.
func describeAPIKey(key string) string {
	if key == "" {
		return "not set (export GEMINI_API_KEY)"
	}
	if len(key) <= 8 {
		return "set"
	}
	return fmt.Sprintf("set (%s...)", key[:6])
}
