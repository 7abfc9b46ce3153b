package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vivafolio/entsync/pkg/core"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch the roots and print entity changes as they happen",
	Long: `Watch runs the service in the foreground and prints one line per
file and entity event until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newService(args)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		svc.On(core.EventFileChanged, func(payload any) error {
			if ev, ok := payload.(core.FileChangeEvent); ok {
				fmt.Printf("%s\t%s\n", ev.EventType, ev.FilePath)
			}
			return nil
		})
		svc.On(core.EventEntityCreated, func(payload any) error {
			if ev, ok := payload.(core.EntityCreateEvent); ok {
				fmt.Printf("created\t%s\n", ev.EntityID)
			}
			return nil
		})
		svc.On(core.EventEntityUpdated, func(payload any) error {
			if ev, ok := payload.(core.EntityUpdateEvent); ok {
				fmt.Printf("updated\t%s\n", ev.EntityID)
			}
			return nil
		})
		svc.On(core.EventEntityDeleted, func(payload any) error {
			if ev, ok := payload.(core.EntityDeleteEvent); ok {
				fmt.Printf("deleted\t%s\n", ev.EntityID)
			}
			return nil
		})

		if err := svc.Start(ctx); err != nil {
			fatal("Failed to start service", err)
		}

		fmt.Printf("Watching %d entities. Press Ctrl+C to stop.\n", len(svc.GetAllEntities()))
		<-ctx.Done()

		if err := svc.Stop(context.Background()); err != nil {
			fatal("Failed to stop service", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
