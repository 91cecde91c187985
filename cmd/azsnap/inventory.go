package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/CZERTAINLY/azsnap/internal/azcli"
	"github.com/CZERTAINLY/azsnap/internal/inventory"

	"github.com/spf13/cobra"
)

var flagOutput string

func init() {
	inventoryCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "inventory file to write, default linux_vm-inventory.csv")
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "list the Linux VMs of all subscriptions into an inventory file",
	RunE:  doInventory,
}

func doInventory(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	path := flagOutput
	if path == "" {
		path = config.Files.HostInventory
	}

	az := azcli.Az{Binary: config.Az.Binary, Timeout: config.Az.Timeout}
	runner := azcli.NewRunner(nil).WithRetries(config.Az.MaxRetries, config.Az.RetryDelay)
	entries, stats, err := inventory.NewCollector(az, runner).Collect(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating inventory: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := inventory.WriteInventory(w, entries); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "inventory written", "path", path, "vms", len(entries), "subscriptions", stats.Subscriptions, "skipped", stats.Skipped)
	fmt.Printf("Inventory file: %s\n", path)
	fmt.Printf("Subscriptions: %d (skipped %d)\n", stats.Subscriptions, stats.Skipped)
	fmt.Printf("Linux VMs: %d\n", len(entries))
	return nil
}
