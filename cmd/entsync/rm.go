package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [entity-id]",
	Short: "Delete an entity from its source file",
	Long: `Rm removes the entity's backing fragment: a CSV or construct row is
spliced out of its table, a Markdown or JSON entity's file is deleted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		svc := newService(nil)

		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			fatal("Failed to start service", err)
		}
		defer svc.Stop(ctx)

		if res := svc.DeleteEntity(ctx, id); !res.Success {
			fatal("Failed to delete entity", res.Err)
		}

		fmt.Printf("Entity deleted: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
