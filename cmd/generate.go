package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"schema2db/internal/dialect"
	"schema2db/internal/engine"

	"github.com/goccy/go-json"
	"github.com/gosuri/uiprogress"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	genOutput  string
	genSeed    int64
	genFirstID int64
	genEntries int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate fake items that fit the schema",
	Long:  "Writes JSON lines in the format read by load. Every value fits a compiled column.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		var out io.Writer = os.Stdout
		if genOutput != "" && genOutput != "-" {
			f, err := os.Create(genOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", genOutput, err)
			}
			defer f.Close()
			out = f
		}
		w := bufio.NewWriter(out)
		enc := json.NewEncoder(w)

		if genSeed == 0 {
			genSeed = time.Now().UnixNano()
		}
		g := engine.NewGenerator(cat, genSeed)
		if genEntries > 0 {
			g.WildcardEntries = genEntries
		}

		count := viper.GetInt("generate.count")
		showBar := genOutput != "" && genOutput != "-"
		var bar *uiprogress.Bar
		if showBar {
			uiprogress.Start()
			bar = uiprogress.AddBar(count).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return "Generating: "
			})
		}

		for i := 0; i < count; i++ {
			item := g.Item(genFirstID + int64(i))
			if err := enc.Encode(itemRecord{ID: item.ID, Data: item.Data.(map[string]any)}); err != nil {
				return fmt.Errorf("failed to write item %d: %w", i, err)
			}
			if bar != nil {
				bar.Incr()
			}
		}
		if showBar {
			uiprogress.Stop()
		}
		if err := w.Flush(); err != nil {
			return err
		}
		log.Printf("Generated %d items (seed %d)", count, genSeed)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Int("count", 0, "Number of items to generate (overrides config)")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (default stdout)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed (default: time based)")
	generateCmd.Flags().Int64Var(&genFirstID, "first-id", 1, "Id of the first item")
	generateCmd.Flags().IntVar(&genEntries, "entries", 0, "Entries per pattern property")

	viper.BindPFlag("generate.count", generateCmd.Flags().Lookup("count"))
	viper.SetDefault("generate.count", 100)
}
