// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"time"

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
	var path string

	cmd := &cobra.Command{
		Use:   "registry-updater",
		Short: "Maintain the admissions activity registry",
		Long: `Maintain configs/activity-registry.json, the list of job workers the
worker-manager is allowed to start.

Examples:
  registry-updater add --id index-application --display-name "Index Application" \
      --description "Indexes an application for staff search" --category search \
      --task-type index-application
  registry-updater update --id index-application --field status --value completed
  registry-updater validate --path configs/activity-registry.json
`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&path, "path", "configs/activity-registry.json", "Path to registry file")

	cmd.AddCommand(addCmd(&path), updateCmd(&path), validateCmd(&path))
	return cmd
}

func addCmd(path *string) *cobra.Command {
	var a registry.Activity

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new activity to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				if !os.IsNotExist(err) {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = &registry.ActivityRegistry{Version: "1.0.0"}
			}

			a.InputSchema = map[string]interface{}{}
			a.OutputSchema = map[string]interface{}{}
			if err := reg.Add(a, time.Now()); err != nil {
				return err
			}
			if err := registry.Save(reg, *path); err != nil {
				return err
			}
			fmt.Printf("Added activity: %s\n", a.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "Activity ID (e.g., index-application)")
	f.StringVar(&a.DisplayName, "display-name", "", "Display name")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "", "Category (e.g., admissions)")
	f.StringVar(&a.TaskType, "task-type", "", "Zeebe task type")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "Implementation status (planned, in-progress, completed, verified)")
	f.StringVar(&a.Timeout, "timeout", "10s", "Job timeout")
	f.IntVar(&a.Retries, "retries", 3, "Job retries")
	f.StringSliceVar(&a.ErrorCodes, "error-codes", nil, "Error codes the worker may raise")
	f.StringSliceVar(&a.Workflows, "workflows", nil, "BPMN processes using the worker")
	f.StringSliceVar(&a.Tags, "tags", nil, "Tags")
	for _, name := range []string{"id", "display-name", "description", "category", "task-type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func updateCmd(path *string) *cobra.Command {
	var id, field, value string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update one field of an existing activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Update(id, field, value, time.Now()); err != nil {
				return err
			}
			if err := registry.Save(reg, *path); err != nil {
				return err
			}
			fmt.Printf("Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, timeout, retries, ...)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	for _, name := range []string{"id", "field", "value"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func validateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}
