// Package s3copy loads mapped rows into Redshift by staging CSV files on S3
// and running COPY for each table.
package s3copy

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"schema2db/internal/dialect"
	"schema2db/internal/engine"
	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

// DefaultUploads is the number of files uploaded at the same time.
const DefaultUploads = 4

// Uploader is the part of manager.Uploader the sink needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Options locates the staging area.
type Options struct {
	Bucket  string
	Prefix  string
	IAMRole string
	// TempDir holds the staged files; the system default when empty.
	TempDir string
	Uploads int
}

type staged struct {
	table *schema.Table
	file  *os.File
	w     *csv.Writer
	rows  int
}

// Sink writes rows to one CSV file per table. Flush uploads the files and
// loads them with COPY in the order the tables were first written.
type Sink struct {
	db   engine.DB
	d    *dialect.RedshiftDialect
	up   Uploader
	cfg  engine.Config
	opts Options

	batch string
	files map[string]*staged
	order []string
}

// NewUploader builds an S3 upload manager from the default AWS credential
// chain. region overrides AWS_REGION when set.
func NewUploader(ctx context.Context, region string) (*manager.Uploader, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return manager.NewUploader(s3.NewFromConfig(cfg)), nil
}

// New returns a sink staging through up and running COPY on db.
func New(db engine.DB, up Uploader, cfg engine.Config, opts Options) *Sink {
	if opts.Uploads <= 0 {
		opts.Uploads = DefaultUploads
	}
	return &Sink{
		db:    db,
		d:     &dialect.RedshiftDialect{},
		up:    up,
		cfg:   cfg.WithDefaults(),
		opts:  opts,
		batch: uuid.NewString(),
		files: make(map[string]*staged),
	}
}

// Key returns the object key of the staged file of table.
func (s *Sink) Key(table string) string {
	return path.Join(s.opts.Prefix, s.batch, table+".csv")
}

func (s *Sink) Write(ctx context.Context, t *schema.Table, rows []mapper.Row) error {
	st, ok := s.files[t.Name]
	if !ok {
		f, err := os.CreateTemp(s.opts.TempDir, "schema2db-"+t.Name+"-*.csv")
		if err != nil {
			return fmt.Errorf("failed to stage %s: %w", t.Name, err)
		}
		st = &staged{table: t, file: f, w: csv.NewWriter(f)}
		s.files[t.Name] = st
		s.order = append(s.order, t.Name)
	}

	for _, r := range rows {
		record := make([]string, 0, len(r.Values)+2)
		record = append(record, FormatValue(s.cfg.ItemType, r.ItemID), r.Prefix)
		for i, v := range r.Values {
			record = append(record, FormatValue(t.Columns[i].Type, v))
		}
		if err := st.w.Write(record); err != nil {
			return fmt.Errorf("failed to stage %s: %w", t.Name, err)
		}
		st.rows++
	}
	return nil
}

// Flush uploads every staged file and copies it into its table. The staged
// files are removed whether or not the load succeeds.
func (s *Sink) Flush(ctx context.Context) error {
	files, order := s.files, s.order
	batch := make(map[string]string, len(order))
	for _, name := range order {
		batch[name] = s.Key(name)
	}
	s.files, s.order = make(map[string]*staged), nil
	s.batch = uuid.NewString()
	defer func() {
		for _, st := range files {
			os.Remove(st.file.Name())
		}
	}()

	for _, name := range order {
		st := files[name]
		st.w.Flush()
		if err := st.w.Error(); err != nil {
			st.file.Close()
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}
		if err := st.file.Close(); err != nil {
			return fmt.Errorf("failed to stage %s: %w", name, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Uploads)
	for _, name := range order {
		name, key := name, batch[name]
		g.Go(func() error {
			f, err := os.Open(files[name].file.Name())
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := s.up.Upload(gctx, &s3.PutObjectInput{
				Bucket: aws.String(s.opts.Bucket),
				Key:    aws.String(key),
				Body:   f,
			}); err != nil {
				return fmt.Errorf("failed to upload %s: %w", key, err)
			}
			log.Debugf("uploaded %d rows of %s to s3://%s/%s", files[name].rows, name, s.opts.Bucket, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, name := range order {
		st := files[name]
		uri := fmt.Sprintf("s3://%s/%s", s.opts.Bucket, batch[name])
		q := s.d.CopyFromS3Query(s.d.QualifiedName(s.cfg.Namespace, name), s.cfg.Columns(st.table), uri, s.opts.IAMRole)
		log.Debug(q)
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to copy %s into %s: %w", uri, name, err)
		}
	}
	return nil
}

// FormatValue renders v as a CSV field for a column of type t.
func FormatValue(t schema.ColumnType, v any) string {
	switch x := v.(type) {
	case nil:
		return dialect.CopyNull
	case time.Time:
		if t == schema.TypeDate {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05.999999Z07:00")
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return cast.ToString(v)
}
