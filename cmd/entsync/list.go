package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vivafolio/entsync"
)

var (
	listJSON   bool
	filterType string
)

var listCmd = &cobra.Command{
	Use:   "list [path...]",
	Short: "List all entities under the watch roots",
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(args)

		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			fatal("Failed to start service", err)
		}
		defer svc.Stop(ctx)

		var filtered []entsync.Entity
		for _, entity := range svc.GetAllEntities() {
			if filterType != "" && entity.EntityTypeID != filterType {
				continue
			}
			filtered = append(filtered, entity)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, entity := range filtered {
			fmt.Printf("%s\t%s\t%s\n", entity.EntityID, entity.SourceType, entity.SourcePath)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterType, "type", "", "Filter entities by entity type")
}
