package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vivafolio/entsync"
)

var setCmd = &cobra.Command{
	Use:   "set [entity-id] [key=value...]",
	Short: "Update an entity's properties in its source file",
	Long: `Set writes new property values back into the entity's source file.
Only the addressed line or fragment is rewritten.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]

		props := entsync.Properties{}
		for _, pair := range args[1:] {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				fmt.Fprintf(os.Stderr, "Error: expected key=value, got %q\n", pair)
				os.Exit(1)
			}
			props[key] = value
		}

		svc := newService(nil)

		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			fatal("Failed to start service", err)
		}
		defer svc.Stop(ctx)

		if res := svc.UpdateEntity(ctx, id, props); !res.Success {
			fatal("Failed to update entity", res.Err)
		}

		fmt.Printf("Entity updated: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
