// Package snapshot persists inspected catalogs as YAML documents in object
// storage, one object per database.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/pgcatalog/internal/errs"
	"github.com/koustreak/pgcatalog/internal/filestore"
	"github.com/koustreak/pgcatalog/internal/logger"
	"github.com/koustreak/pgcatalog/internal/schema"
)

const (
	// FormatVersion is written into every document.
	FormatVersion = 1

	contentType = "application/yaml"
	extension   = ".yaml"
)

// Config controls where snapshots are written.
type Config struct {
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
}

// Document is the stored form of a snapshot.
type Document struct {
	Format        int       `json:"format" yaml:"format"`
	TakenAt       time.Time `json:"taken_at" yaml:"taken_at"`
	schema.Schema `yaml:",inline"`
}

// Store reads and writes snapshots through a filestore.Store.
type Store struct {
	files  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// New returns a Store writing to cfg.Bucket under cfg.Prefix.
func New(files filestore.Store, cfg Config, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		files:  files,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log.Named("snapshot"),
		now:    time.Now,
	}
}

// Key returns the object key of database's snapshot: <prefix>/<database>.yaml.
func Key(prefix, database string) string {
	return path.Join(strings.Trim(prefix, "/"), database+extension)
}

// Encode writes doc as YAML.
func Encode(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "encode snapshot", err)
	}
	return enc.Close()
}

// Decode reads a YAML document written by Encode.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode snapshot", err)
	}
	if doc.Format != FormatVersion {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported snapshot format %d", doc.Format)
	}
	return &doc, nil
}

// Save writes s and returns the stored object's metadata.
func (st *Store) Save(ctx context.Context, s *schema.Schema) (*filestore.ObjectInfo, error) {
	if s == nil || s.Database == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "snapshot needs a database name")
	}

	var buf bytes.Buffer
	doc := &Document{Format: FormatVersion, TakenAt: st.now().UTC(), Schema: *s}
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}

	key := Key(st.prefix, s.Database)
	info, err := st.files.PutObject(ctx, st.bucket, key, &buf, int64(buf.Len()), contentType)
	if err != nil {
		return nil, fmt.Errorf("save snapshot %s: %w", key, err)
	}

	st.log.InfoWith("snapshot saved", map[string]any{
		"bucket": st.bucket, "key": key, "tables": len(s.Tables), "bytes": info.Size,
	})
	return info, nil
}

// Load reads the snapshot of database.
func (st *Store) Load(ctx context.Context, database string) (*Document, error) {
	key := Key(st.prefix, database)
	obj, err := st.files.GetObject(ctx, st.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer obj.Close()

	doc, err := Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return doc, nil
}

// Exists reports whether a snapshot of database has been saved.
func (st *Store) Exists(ctx context.Context, database string) (bool, error) {
	_, err := st.files.StatObject(ctx, st.bucket, Key(st.prefix, database))
	switch {
	case err == nil:
		return true, nil
	case errs.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// List returns the names of the databases with a saved snapshot.
func (st *Store) List(ctx context.Context) ([]string, error) {
	prefix := st.prefix
	if prefix != "" {
		prefix += "/"
	}
	objs, err := st.files.ListObjects(ctx, st.bucket, filestore.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	names := make([]string, 0, len(objs))
	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(rest, extension))
	}
	return names, nil
}
