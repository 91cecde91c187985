package main

import (
	"fmt"
	"os"

	"github.com/CZERTAINLY/azsnap/internal/inventory"
	"github.com/CZERTAINLY/azsnap/internal/limiter"
	"github.com/CZERTAINLY/azsnap/internal/model"
	"github.com/CZERTAINLY/azsnap/internal/orchestrator"
	"github.com/CZERTAINLY/azsnap/internal/report"
	"github.com/CZERTAINLY/azsnap/internal/snapshot"

	"github.com/spf13/cobra"
)

var (
	flagLedger string
	flagSave   bool
)

func init() {
	validateCmd.Flags().StringVarP(&flagLedger, "ledger", "l", "", "file with snapshot resource ids, default snap_rid_list.txt")
	validateCmd.Flags().BoolVar(&flagSave, "save", false, "save the validation results without asking")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "check that every snapshot listed in the ledger exists",
	RunE:  doValidate,
}

func doValidate(cmd *cobra.Command, _ []string) error {
	path, err := resolve(flagLedger, "Enter the path to the snapshot list file", config.Files.Ledger)
	if err != nil {
		return err
	}

	ctx, sess, err := newSession(cmd.Context(), model.ActionValidate, "")
	if err != nil {
		return err
	}
	defer sess.Close()

	items, err := inventory.ReadFile(path, inventory.ParseLedger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}

	validator := snapshot.NewValidator(sess.az, sess.runner)
	progress := report.NewProgress(os.Stderr, "Validating snapshots", len(items))
	// snapshot show addresses snapshots by full id, the active subscription is irrelevant
	driver := orchestrator.New(sess.az, sess.runner, limiter.New(config.Run.Concurrency), validator, sess.run, orchestrator.Options{
		SkipScopeSwitch: true,
		Observer:        progress.Observe,
		Tracer:          sess.tracer,
	})

	summary, err := driver.Run(ctx, items)
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Println(report.ValidationTable(summary))
	fmt.Println("Validation complete!")
	fmt.Printf("Total snapshots processed: %d\n", summary.Total)
	fmt.Printf("Existing snapshots: %d\n", summary.Succeeded)
	fmt.Printf("Missing snapshots: %d\n", summary.Failed)
	printRuntime(summary)

	save := flagSave
	if !save && interactive() {
		save, err = confirm("Do you want to save the validation results to a log file?")
		if err != nil {
			return err
		}
	}
	files := []string{sess.run.LogFile}
	if save {
		if err := report.WriteFile(sess.run.SummaryFile, summary, report.WriteValidation); err != nil {
			return err
		}
		fmt.Printf("Results saved: %s\n", sess.run.SummaryFile)
		files = append(files, sess.run.SummaryFile)
	}
	sess.publish(ctx, files...)
	fmt.Printf("Detailed log: %s\n", sess.run.LogFile)
	return nil
}
