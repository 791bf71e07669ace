package s3copy_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"schema2db/internal/bulk/s3copy"
	"schema2db/internal/engine"
	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]string)
	}
	f.objects[*in.Bucket+"/"+*in.Key] = string(body)
	return &manager.UploadOutput{}, nil
}

type fakeDB struct {
	queries []string
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	return nil, nil
}

func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

var (
	root = &schema.Table{Name: "root", Columns: []schema.Column{
		{Name: "amount", Type: schema.TypeNumber},
		{Name: "city", Type: schema.TypeString},
	}}
	owned = &schema.Table{Name: "owned", Columns: []schema.Column{
		{Name: "since", Type: schema.TypeDate},
	}}
)

func TestSink_StagesUploadsAndCopies(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	db := &fakeDB{}
	s := s3copy.New(db, up, engine.Config{}, s3copy.Options{
		Bucket: "bucket", Prefix: "stage", IAMRole: "arn:role", TempDir: t.TempDir(),
	})

	rootKey, ownedKey := s.Key("root"), s.Key("owned")
	assert.True(t, strings.HasPrefix(rootKey, "stage/"))
	assert.True(t, strings.HasSuffix(rootKey, "/root.csv"))

	require.NoError(t, s.Write(ctx, root, []mapper.Row{
		{Table: "root", ItemID: int64(1), Prefix: "", Values: []any{1.5, "New York, NY"}},
		{Table: "root", ItemID: int64(2), Prefix: "", Values: []any{nil, ""}},
	}))
	require.NoError(t, s.Write(ctx, owned, []mapper.Row{
		{Table: "owned", ItemID: int64(1), Prefix: "/Owned/1", Values: []any{time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)}},
	}))
	require.NoError(t, s.Flush(ctx))

	assert.Equal(t, "1,,1.5,\"New York, NY\"\n2,,\\N,\n", up.objects["bucket/"+rootKey])
	assert.Equal(t, "1,/Owned/1,2020-02-29\n", up.objects["bucket/"+ownedKey])

	require.Len(t, db.queries, 2)
	assert.Equal(t,
		`COPY "root" ("item_id", "prefix", "amount", "city") FROM 's3://bucket/`+rootKey+`' CSV NULL AS '\N' TRUNCATECOLUMNS COMPUPDATE OFF STATUPDATE OFF IAM_ROLE 'arn:role'`,
		db.queries[0])
	assert.Contains(t, db.queries[1], `COPY "owned"`)

	// the next batch goes to a fresh location
	assert.NotEqual(t, rootKey, s.Key("root"))
}

func TestSink_UploadFailureSkipsCopy(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	s := s3copy.New(db, &fakeUploader{err: errors.New("denied")}, engine.Config{}, s3copy.Options{Bucket: "b", TempDir: t.TempDir()})

	require.NoError(t, s.Write(ctx, owned, []mapper.Row{{Table: "owned", ItemID: int64(1), Values: []any{nil}}}))
	assert.ErrorContains(t, s.Flush(ctx), "denied")
	assert.Empty(t, db.queries)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, `\N`, s3copy.FormatValue(schema.TypeString, nil))
	assert.Equal(t, "2021-03-04", s3copy.FormatValue(schema.TypeDate, ts))
	assert.Equal(t, "2021-03-04 05:06:07Z", s3copy.FormatValue(schema.TypeTimestamp, ts))
	assert.Equal(t, "true", s3copy.FormatValue(schema.TypeBoolean, true))
	assert.Equal(t, "0.1", s3copy.FormatValue(schema.TypeNumber, 0.1))
	assert.Equal(t, "42", s3copy.FormatValue(schema.TypeInteger, int64(42)))
}
