package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the compiled tables",
	Long:  "Recreates the configured namespace, if any, and creates every compiled table with its comments.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		return s.loader.CreateTables(ctx)
	},
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Fill the link columns and add foreign keys",
	Long:  "Run after loading. Every link column gets the id of the row it refers to; running it again is harmless.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		return s.loader.CreateLinks(ctx)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Refresh table statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		return s.loader.Analyze(ctx)
	},
}

func init() {
	RootCmd.AddCommand(createCmd, linkCmd, analyzeCmd)
}
