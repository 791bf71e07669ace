package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"schema2db/internal/bulk/pgcopy"
	"schema2db/internal/bulk/s3copy"
	"schema2db/internal/engine"
	"schema2db/internal/mapper"

	"github.com/goccy/go-json"
	"github.com/gosuri/uiprogress"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dryRun    bool
	clean     bool
	linkAfter bool
)

// itemRecord is one line of the items file.
type itemRecord struct {
	ID    any            `json:"id"`
	Data  map[string]any `json:"data"`
	Extra map[string]any `json:"extra"`
}

var loadCmd = &cobra.Command{
	Use:   "load [items.jsonl]",
	Short: "Map JSON items onto the compiled tables and load them",
	Long: `Reads one JSON object per line, {"id": ..., "data": {...}, "extra": {...}},
from the given file or stdin and inserts the rows they map to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := io.Reader(os.Stdin)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open items: %w", err)
			}
			defer f.Close()
			in = f
		}
		items, err := readItems(in)
		if err != nil {
			return err
		}

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		l := s.loader

		if clean && !dryRun {
			if _, err := l.Clean(ctx, false); err != nil {
				return err
			}
		}

		bulk := viper.GetString("load.bulk")
		switch bulk {
		case "", "insert", "pgcopy", "s3":
		default:
			return fmt.Errorf("unknown bulk mode %q (insert, pgcopy or s3)", bulk)
		}

		log.Printf("Loading %d items...", len(items))
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(len(items)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Mapping: "
		})
		progress := func() { bar.Incr() }

		// Every path but the dry run loads inside one transaction, so a
		// failing item leaves no rows behind.
		var totals map[string]int
		switch {
		case dryRun:
			log.Println("[SIMULATION] Dry-Run Mode Active: No data will be written.")
			totals, err = l.Load(ctx, items, engine.DiscardSink{}, progress)
		case bulk == "pgcopy":
			pool, perr := pgcopy.Connect(ctx, s.config.DSN)
			if perr != nil {
				uiprogress.Stop()
				return perr
			}
			defer pool.Close()
			err = pgcopy.InTx(ctx, pool, l.Config(), func(sink *pgcopy.Sink) error {
				var lerr error
				totals, lerr = l.Load(ctx, items, sink, progress)
				return lerr
			})
		case bulk == "s3":
			up, uerr := s3copy.NewUploader(ctx, viper.GetString("s3.region"))
			if uerr != nil {
				uiprogress.Stop()
				return uerr
			}
			err = engine.RunInTx(ctx, s.db, func(tx engine.DB) error {
				sink := s3copy.New(tx, up, l.Config(), s3copy.Options{
					Bucket:  viper.GetString("s3.bucket"),
					Prefix:  viper.GetString("s3.prefix"),
					IAMRole: viper.GetString("s3.iam_role"),
				})
				var lerr error
				totals, lerr = l.WithDB(tx).Load(ctx, items, sink, progress)
				return lerr
			})
		default:
			err = engine.RunInTx(ctx, s.db, func(tx engine.DB) error {
				var lerr error
				totals, lerr = l.WithDB(tx).Load(ctx, items, engine.NewInsertSink(tx, s.d, l.Config()), progress)
				return lerr
			})
		}
		uiprogress.Stop()
		if err != nil {
			return err
		}

		fmt.Println("\n📊 Rows per table:")
		for _, t := range sortedKeys(totals) {
			fmt.Printf("  %-30s : %d\n", t, totals[t])
		}
		printFailures(l.Mapper())

		if linkAfter && !dryRun {
			if err := l.CreateLinks(ctx); err != nil {
				return err
			}
		}
		log.Printf("Load Done! Time Elapsed: %s", time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Map and validate items without writing to the DB")
	loadCmd.Flags().BoolVar(&clean, "clean", false, "Clean tables before loading")
	loadCmd.Flags().BoolVar(&linkAfter, "link", false, "Create links after loading")
	loadCmd.Flags().Int("batch-size", 0, "Rows buffered per table before writing (overrides config)")
	loadCmd.Flags().String("bulk", "", "Bulk path: insert, pgcopy or s3 (overrides config)")

	viper.BindPFlag("load.batch_size", loadCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("load.bulk", loadCmd.Flags().Lookup("bulk"))
}

// readItems decodes a stream of JSON objects. Numbers are kept as
// json.Number so that large integers survive.
func readItems(r io.Reader) ([]mapper.Item, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []mapper.Item
	for line := 1; ; line++ {
		var rec itemRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return items, nil
			}
			return nil, fmt.Errorf("item %d: %w", line, err)
		}
		if rec.ID == nil {
			return nil, fmt.Errorf("item %d: missing id", line)
		}
		items = append(items, mapper.Item{ID: rec.ID, Data: rec.Data, Extra: rec.Extra})
	}
}

func printFailures(m *mapper.Mapper) {
	failures := m.Failures()
	if len(failures) > 0 {
		fmt.Println("\n⚠ Values that could not be placed:")
		for _, p := range sortedKeys(failures) {
			fmt.Printf("  %-50s : %d\n", p, failures[p])
		}
	}

	var unused []string
	for p, n := range m.Hits() {
		if n == 0 {
			unused = append(unused, p)
		}
	}
	sort.Strings(unused)
	for _, p := range unused {
		log.Debugf("schema path never used: %s", p)
	}
}
