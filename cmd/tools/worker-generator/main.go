// cmd/tools/worker-generator/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"admissions-engine/pkg/registry"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		registryPath string
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "worker-generator <activity-id>",
		Short: "Scaffold a job worker from the activity registry",
		Long: `Scaffold config.go, models.go, handler.go and handler_test.go for an
activity listed in the registry. Files that already exist are left alone.

Example:
  worker-generator index-application --registry configs/activity-registry.json
`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			activity, ok := reg.Find(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", registry.ErrActivityNotFound, args[0])
			}

			dir := filepath.Join(outputDir, activity.ID)
			written, err := Generate(NewWorkerData(*activity), dir)
			if err != nil {
				return err
			}
			for _, name := range written {
				fmt.Printf("Generated %s\n", filepath.Join(dir, name))
			}
			if len(written) == 0 {
				fmt.Printf("Nothing to generate, %s is complete\n", dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "configs/activity-registry.json", "Path to registry file")
	cmd.Flags().StringVar(&outputDir, "out", "internal/workers/admissions", "Directory that holds worker packages")
	return cmd
}
