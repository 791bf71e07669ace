package cmd

import (
	"fmt"
	"strings"

	"schema2db/internal/dialect"
	"schema2db/internal/schema"

	"github.com/spf13/cobra"
)

var checkDrift bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the tables, links and warnings compiled from the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if checkDrift {
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			printCatalog(s.cat)
			drift, err := s.loader.Drift(ctx)
			if err != nil {
				return err
			}
			if drift.Empty() {
				fmt.Println("\nDatabase matches the schema.")
				return nil
			}
			fmt.Println("\nDrift:")
			for _, t := range drift.MissingTables {
				fmt.Printf("  missing table %s\n", t)
			}
			for _, t := range sortedKeys(drift.MissingColumns) {
				fmt.Printf("  %s: missing columns %s\n", t, strings.Join(drift.MissingColumns[t], ", "))
			}
			return nil
		}

		tc, err := GetTranslatorConfig()
		if err != nil {
			return err
		}
		flavor := "postgres"
		if config, err := GetActiveDBConfig(); err == nil {
			flavor = config.GetFlavor()
		}
		d, err := dialect.GetDialect(flavor)
		if err != nil {
			return err
		}
		cat, err := compileCatalog(tc, d)
		if err != nil {
			return err
		}
		printCatalog(cat)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&checkDrift, "drift", false, "Compare the schema with the database")
}

func printCatalog(cat *schema.Catalog) {
	fmt.Printf("🔍 Analysis Results:\n")
	for i, t := range cat.Ordered() {
		fmt.Printf("[%02d] %s (Dependencies: %v)\n", i+1, t.Name, t.Dependencies)
		if t.Comment != "" {
			fmt.Printf("     -- %s\n", t.Comment)
		}
		for _, c := range t.Columns {
			line := fmt.Sprintf("     %-40s %s", c.Name, c.Type)
			if c.Comment != "" {
				line += "  -- " + c.Comment
			}
			fmt.Println(line)
		}
	}

	if len(cat.Links) > 0 {
		fmt.Println("\nLinks:")
		for _, l := range cat.Links {
			kind := "/" + l.Prefix
			if l.Back {
				kind = "parent"
			}
			fmt.Printf("  %s.%s -> %s (%s)\n", l.Table, l.Column, l.Target, kind)
		}
	}

	if len(cat.Diagnostics.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range cat.Diagnostics.Warnings {
			fmt.Printf("  [%s] %s\n", w.Code, w)
		}
	}
}
