package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get [entity-id]",
	Short: "Print one entity's properties",
	Long:  `Get looks up an entity by its ID and prints its properties, one key per line, or as a JSON object with --json.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		svc := newService(nil)

		ctx := context.Background()
		if err := svc.Start(ctx); err != nil {
			fatal("Failed to start service", err)
		}
		defer svc.Stop(ctx)

		entity, ok := svc.GetEntity(id)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown entity %q\n", id)
			os.Exit(1)
		}

		if getJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(entity); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		keys := make([]string, 0, len(entity.Properties))
		for k := range entity.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %v\n", k, entity.Properties[k])
		}
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Output in JSON format")
}
