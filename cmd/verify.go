package cmd

import (
	"fmt"
	"sort"

	"schema2db/internal/engine"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report row counts and unlinked rows per table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		reports, err := s.loader.Verify(ctx)
		if err != nil {
			return err
		}
		printReports(reports)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(verifyCmd)
}

func printReports(reports []engine.TableReport) {
	fmt.Println("\n📊 Summary Report (Dependency Order):")
	var total int64
	failed := 0
	for i, r := range reports {
		icon := "✓"
		if r.Status != engine.StatusOK {
			icon = "!"
			failed++
		}
		fmt.Printf("[%s] [%02d/%02d] %-30s : %d rows - %s\n", icon, i+1, len(reports), r.Table, r.Rows, r.Status)
		for _, col := range sortedKeys(r.Unlinked) {
			fmt.Printf("    └ %s: %d rows without parent\n", col, r.Unlinked[col])
		}
		for _, col := range sortedKeys(r.Empty) {
			fmt.Printf("    └ %s: %d rows without target\n", col, r.Empty[col])
		}
		total += r.Rows
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total Rows: %d, Tables with problems: %d\n", total, failed)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
