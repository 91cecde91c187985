package main

import (
	"fmt"
	"os"

	"github.com/CZERTAINLY/azsnap/internal/inventory"
	"github.com/CZERTAINLY/azsnap/internal/limiter"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/orchestrator"
	"github.com/CZERTAINLY/azsnap/internal/outcome"
	"github.com/CZERTAINLY/azsnap/internal/report"
	"github.com/CZERTAINLY/azsnap/internal/snapshot"

	"github.com/spf13/cobra"
)

var (
	flagInventory  string
	flagTag        string
	flagExpireDays int
)

func init() {
	createCmd.Flags().StringVarP(&flagInventory, "inventory", "i", "", "file with `<resourceId> <vmName>` lines, default snapshot_vmlist.txt")
	createCmd.Flags().StringVarP(&flagTag, "tag", "t", "", "change number used in the snapshot names")
	createCmd.Flags().IntVar(&flagExpireDays, "expire-days", -1, "days until the snapshot expires, 0 disables the expires tag")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "create snapshots of the OS disks of all VMs in the inventory",
	RunE:  doCreate,
}

func doCreate(cmd *cobra.Command, _ []string) error {
	path, err := resolve(flagInventory, "Enter the filename with VM list", config.Files.VMList)
	if err != nil {
		return err
	}
	tag, err := resolve(flagTag, "Enter the CHG number", "")
	if err != nil {
		return err
	}
	if flagExpireDays >= 0 {
		config.Snapshot.ExpireDays = flagExpireDays
	}

	ctx, sess, err := newSession(cmd.Context(), model.ActionCreate, tag)
	if err != nil {
		return err
	}
	defer sess.Close()

	items, err := inventory.ReadFile(path, inventory.Parse)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}

	ledger, err := outcome.OpenLedger(sess.run.LedgerFile)
	if err != nil {
		return err
	}
	defer func() {
		_ = ledger.Close()
	}()

	creator := snapshot.NewCreator(sess.az, sess.runner, ledger, snapshot.CreateOptionsFor(config.Snapshot, sess.run))
	progress := report.NewProgress(os.Stderr, "Creating snapshots", len(items))
	driver := orchestrator.New(sess.az, sess.runner, limiter.New(config.Run.Concurrency), creator, sess.run, orchestrator.Options{
		Observer: progress.Observe,
		Tracer:   sess.tracer,
	})

	summary, err := driver.Run(ctx, items)
	progress.Finish()
	if err != nil {
		return err
	}
	if err := ledger.Close(); err != nil {
		return fmt.Errorf("closing ledger: %w", err)
	}

	fmt.Println(report.SummaryTable(summary))
	if summary.Failed > 0 {
		fmt.Println(report.OutcomeTable(outcome.RunSummary{Outcomes: summary.Failures()}))
	}
	if err := report.WriteFile(sess.run.SummaryFile, summary, report.WriteSummary); err != nil {
		return err
	}
	sess.publish(ctx, sess.run.SummaryFile, sess.run.LedgerFile, sess.run.LogFile)

	fmt.Println("Snapshot creation process completed.")
	fmt.Printf("Detailed log: %s\n", sess.run.LogFile)
	fmt.Printf("Summary: %s\n", sess.run.SummaryFile)
	fmt.Printf("Snapshot resource IDs: %s\n", sess.run.LedgerFile)
	printRuntime(summary)
	return nil
}
