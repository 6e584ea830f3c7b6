package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowforge/internal/app"
	"flowforge/internal/auth"
	"flowforge/internal/config"
	"flowforge/internal/resource"
)

// applyCmd compiles node documents from files without going through the
// HTTP surface. Each file holds one node document.
func applyCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply node documents from files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(files) == 0 {
				return fmt.Errorf("at least one -f file is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.Build(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, file := range files {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				var node resource.FlowNode
				if err := json.Unmarshal(data, &node); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}

				res, err := a.Dispatcher.Dispatch(cmd.Context(), node)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				fmt.Printf("%s: %s (operation %s)\n", file, res.Message, res.OperationID)
				for _, w := range res.Warnings {
					fmt.Printf("  warning: %s\n", w)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "node document file (repeatable)")
	return cmd
}

// hashPasswordCmd prints a bcrypt hash for the operator credential
// config.
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash a password for auth.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
