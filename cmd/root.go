package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var RootCmd = &cobra.Command{
	Use:   "schema2db",
	Short: "Compile a JSON Schema into tables and load JSON items into them",
	Long: `
schema2db turns a JSON Schema into a set of relational tables, maps JSON
items onto rows of those tables, loads them and links the rows together.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./schema2db.yaml)")
	flags.String("dsn", "", "Database Source Name (DSN), used when no databases are configured")
	flags.String("driver", "postgres", "database/sql driver for --dsn")
	flags.String("schema", "", "JSON or YAML schema file")
	flags.String("namespace", "", "database schema the tables live in")
	flags.Bool("debug", false, "print every statement")

	viper.BindPFlag("database.dsn", flags.Lookup("dsn"))
	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("translator.schema", flags.Lookup("schema"))
	viper.BindPFlag("translator.namespace", flags.Lookup("namespace"))
	viper.BindPFlag("debug", flags.Lookup("debug"))

	viper.SetDefault("translator.item_type", "integer")
	viper.SetDefault("load.batch_size", 1000)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("schema2db")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
