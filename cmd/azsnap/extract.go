package main

import (
	"fmt"
	"log/slog"

	"github.com/CZERTAINLY/azsnap/internal/inventory"

	"github.com/spf13/cobra"
)

var (
	flagHosts         string
	flagHostInventory string
	flagVMList        string
)

func init() {
	extractCmd.Flags().StringVar(&flagHosts, "hosts", "", "file with one hostname per line")
	extractCmd.Flags().StringVar(&flagHostInventory, "inventory", "", "inventory written by the inventory command, default linux_vm-inventory.csv")
	extractCmd.Flags().StringVarP(&flagVMList, "output", "o", "", "vm list to append to, default snapshot_vmlist.txt")
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "append the inventory lines of the given hosts to the vm list",
	RunE:  doExtract,
}

func doExtract(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	hostsPath, err := resolve(flagHosts, "Enter the filename with hostnames", "")
	if err != nil {
		return err
	}
	if hostsPath == "" {
		return fmt.Errorf("--hosts is required")
	}
	invPath := flagHostInventory
	if invPath == "" {
		invPath = config.Files.HostInventory
	}
	outPath := flagVMList
	if outPath == "" {
		outPath = config.Files.VMList
	}

	hosts, err := inventory.ReadLines(hostsPath)
	if err != nil {
		return err
	}
	items, err := inventory.ReadFile(invPath, inventory.Parse)
	if err != nil {
		return err
	}

	lines, missing := inventory.Lookup(hosts, items)
	for _, host := range missing {
		slog.WarnContext(ctx, "host not found in inventory", "host", host, "inventory", invPath)
		fmt.Printf("Not found: %s\n", host)
	}
	if len(lines) == 0 {
		fmt.Println("No matching hosts, nothing written.")
		return nil
	}

	appended, err := inventory.AppendLines(outPath, lines)
	if err != nil {
		return err
	}
	verb := "Created"
	if appended {
		verb = "Appended to"
	}
	fmt.Printf("%s %s: %d of %d hosts\n", verb, outPath, len(lines), len(hosts))
	return nil
}
