package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dropTables bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean all data from the compiled tables",
	Long:  "Empties every compiled table that exists, referencing tables first. With --drop the tables are dropped instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.loader.Clean(ctx, dropTables); err != nil {
			return err
		}
		log.Println("Database Cleaned Successfully!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&dropTables, "drop", false, "Drop the tables instead of emptying them")
}
