package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"billplan/sched"
	"billplan/snapshot"
)

var inputPath string
var outputPath string
var savePath string

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "compute a payment schedule from a snapshot file",
		Long:    `reads a JSON snapshot of bills, paydays and the plan window, recomputes the day-by-day payment schedule and writes it out as CSV`,
		Example: `billplan plan --input snapshot.json --output schedule.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" || outputPath == "" {
				return cmd.Help()
			}
			forceRecompute, _ := cmd.Flags().GetBool("recompute")

			snap, err := snapshot.Load(inputPath)
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			// Load already recomputes when the snapshot says auto_calc;
			// the flag forces it for snapshots that carry a stale schedule.
			if forceRecompute && !snap.AutoCalc {
				if err := sched.Recompute(snap.Bills, snap.Plan); err != nil {
					return fmt.Errorf("failed to recompute schedule: %w", err)
				}
			}

			writeShortfallWarnings(os.Stdout, snap)

			outputFile, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer func(outputFile *os.File) {
				err := outputFile.Close()
				if err != nil {
					log.Fatalf("Failed to close output file: %v", err)
				}
			}(outputFile)

			if err := writeScheduleCSV(outputFile, snap.Plan); err != nil {
				return fmt.Errorf("failed to write schedule: %w", err)
			}

			if savePath != "" {
				if err := snapshot.Save(savePath, snap); err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "json snapshot input file path (required)")
	err := cmd.MarkFlagRequired("input")
	if err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "csv output file path (required)")
	err = cmd.MarkFlagRequired("output")
	if err != nil {
		log.Fatal(err)
		return nil
	}
	cmd.Flags().StringVarP(&savePath, "save", "s", "", "write the recomputed snapshot back to this path")
	cmd.Flags().Bool("recompute", false, "recompute the schedule even when the snapshot is not marked auto_calc")

	return cmd
}

// writeShortfallWarnings names every bill whose remaining balance the plan
// window could not fully cover, in stable name order.
func writeShortfallWarnings(w io.Writer, snap *snapshot.Snapshot) {
	scheduled := make(map[string]sched.Cents)
	for _, allocations := range snap.Plan.Schedule {
		for _, a := range allocations {
			scheduled[a.Bill] += a.Amount
		}
	}

	index := sched.BillIndex(snap.Bills)
	for _, name := range snap.SortedBillNames() {
		bill, ok := index[name]
		if !ok {
			continue
		}
		if short := bill.Remaining() - scheduled[name]; short > 0 {
			fmt.Fprintf(w, "Warning: %s is %.2f short of fully scheduled before the plan ends\n", name, short.Dollars())
		}
	}
}

// writeScheduleCSV renders one row per allocation, days in order, plus a
// trailing total row.
func writeScheduleCSV(f *os.File, plan *sched.Plan) error {
	w := csv.NewWriter(f)

	if err := w.Write([]string{"date", "bill", "amount"}); err != nil {
		return err
	}
	for _, day := range plan.Days() {
		for _, a := range plan.Schedule[day] {
			row := []string{
				day.Format("2006-01-02"),
				a.Bill,
				fmt.Sprintf("%.2f", a.Amount.Dollars()),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	if err := w.Write([]string{"total", "", fmt.Sprintf("%.2f", plan.TotalScheduled().Dollars())}); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
