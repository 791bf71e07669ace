package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"schema2db/internal/dialect"
	"schema2db/internal/engine"
	"schema2db/internal/schema"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	// Flavor selects the SQL dialect; it defaults to Driver.
	Flavor string `mapstructure:"flavor"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// GetFlavor returns the dialect flavor of the database.
func (c *DBConfig) GetFlavor() string {
	if c.Flavor != "" {
		return c.Flavor
	}
	return c.Driver
}

// GetActiveDBConfig returns the currently active database configuration.
// Without a databases list the --driver and --dsn flags are used.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	if len(configs) == 0 {
		if viper.GetString("database.dsn") == "" {
			return nil, fmt.Errorf("no database configured (use a config file or --driver and --dsn)")
		}
		return &DBConfig{
			Name:   "CLI",
			Driver: viper.GetString("database.driver"),
			DSN:    viper.GetString("database.dsn"),
			Active: true,
		}, nil
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

type Abbreviation struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type ExtraColumn struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

// TranslatorConfig describes how the schema is compiled and laid out.
type TranslatorConfig struct {
	Schema        string         `mapstructure:"schema"`
	Namespace     string         `mapstructure:"namespace"`
	RootTable     string         `mapstructure:"root_table"`
	ItemColumn    string         `mapstructure:"item_column"`
	ItemType      string         `mapstructure:"item_type"`
	PrefixColumn  string         `mapstructure:"prefix_column"`
	Abbreviations []Abbreviation `mapstructure:"abbreviations"`
	ExtraColumns  []ExtraColumn  `mapstructure:"extra_columns"`
}

// GetTranslatorConfig reads the translator section.
func GetTranslatorConfig() (*TranslatorConfig, error) {
	var tc TranslatorConfig
	if err := viper.UnmarshalKey("translator", &tc); err != nil {
		return nil, fmt.Errorf("failed to parse translator config: %w", err)
	}
	// UnmarshalKey misses values that only come from flags and defaults.
	tc.Schema = viper.GetString("translator.schema")
	tc.Namespace = viper.GetString("translator.namespace")
	tc.ItemType = viper.GetString("translator.item_type")
	if tc.Schema == "" {
		return nil, fmt.Errorf("translator.schema is required (via --schema or config)")
	}
	return &tc, nil
}

// Options returns the compile options for a dialect with the given
// identifier limit.
func (tc *TranslatorConfig) Options(maxIdentifierLength int) (schema.Options, error) {
	opts := schema.Options{
		RootTable:           tc.RootTable,
		MaxIdentifierLength: maxIdentifierLength,
		Abbreviations:       make(map[string]string, len(tc.Abbreviations)),
	}
	for _, a := range tc.Abbreviations {
		opts.Abbreviations[a.From] = a.To
	}
	for _, c := range tc.ExtraColumns {
		t := schema.ColumnType(c.Type)
		if !t.Valid() {
			return opts, fmt.Errorf("extra column %s: unknown type %q", c.Name, c.Type)
		}
		opts.ExtraColumns = append(opts.ExtraColumns, schema.Column{Name: c.Name, Type: t})
	}
	return opts, nil
}

// EngineConfig returns the table layout settings.
func (tc *TranslatorConfig) EngineConfig() engine.Config {
	return engine.Config{
		Namespace:    tc.Namespace,
		ItemColumn:   tc.ItemColumn,
		ItemType:     schema.ColumnType(tc.ItemType),
		PrefixColumn: tc.PrefixColumn,
		BatchSize:    viper.GetInt("load.batch_size"),
	}
}

// compileCatalog loads and compiles the configured schema for d.
func compileCatalog(tc *TranslatorConfig, d dialect.Dialect) (*schema.Catalog, error) {
	s, err := schema.LoadFile(tc.Schema)
	if err != nil {
		return nil, err
	}
	opts, err := tc.Options(d.MaxIdentifierLength())
	if err != nil {
		return nil, err
	}
	cat, err := schema.Compile(s, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("Compiled %s: %d tables, %d links, %d warnings", tc.Schema, len(cat.Tables), len(cat.Links), len(cat.Diagnostics.Warnings))
	return cat, nil
}

// session bundles what every database command needs.
type session struct {
	config *DBConfig
	tc     *TranslatorConfig
	db     *sql.DB
	d      dialect.Dialect
	cat    *schema.Catalog
	loader *engine.Loader
}

// openSession connects to the active database and compiles the schema.
func openSession(ctx context.Context) (*session, error) {
	config, err := GetActiveDBConfig()
	if err != nil {
		return nil, err
	}
	tc, err := GetTranslatorConfig()
	if err != nil {
		return nil, err
	}

	d, err := dialect.GetDialect(config.GetFlavor())
	if err != nil {
		return nil, err
	}
	log.Printf("Using Dialect: %s", d.Name())

	cat, err := compileCatalog(tc, d)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(config.Driver), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	fmt.Printf("Connected to %s (%s)\n", config.Name, config.Driver)

	return &session{
		config: config,
		tc:     tc,
		db:     db,
		d:      d,
		cat:    cat,
		loader: engine.NewLoader(db, d, cat, tc.EngineConfig()),
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}
