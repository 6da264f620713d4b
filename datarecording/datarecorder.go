// Package datarecording stores the records of a session in SQLite files.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrFileExists is returned when a recording would overwrite a file.
var ErrFileExists = errors.New("recording file already exists")

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the exported fields
	// of the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry to be written into a table that already
	// exists. The entry must have the type of the table's sample entry.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all the tables created.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes into path.sqlite3. An empty path
// picks a unique name. The buffered entries are flushed when the program
// exits through atexit.
func New(path string) (DataRecorder, error) {
	w := NewSQLiteWriter(path)

	if err := w.Init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { w.Flush() })

	return w, nil
}

const defaultBatchSize = 100000

// columnTypes maps the supported field kinds to SQLite column types.
var columnTypes = map[reflect.Kind]string{
	reflect.Bool:    "INTEGER",
	reflect.Int:     "INTEGER",
	reflect.Int8:    "INTEGER",
	reflect.Int16:   "INTEGER",
	reflect.Int32:   "INTEGER",
	reflect.Int64:   "INTEGER",
	reflect.Uint:    "INTEGER",
	reflect.Uint8:   "INTEGER",
	reflect.Uint16:  "INTEGER",
	reflect.Uint32:  "INTEGER",
	reflect.Uint64:  "INTEGER",
	reflect.Float32: "REAL",
	reflect.Float64: "REAL",
	reflect.String:  "TEXT",
}

// schema is a table together with the rows waiting to be written into it.
type schema struct {
	rowType   reflect.Type
	createSQL string
	insertSQL string
	pending   [][]any
}

func newSchema(tableName string, sample any) (*schema, error) {
	rowType := reflect.TypeOf(sample)
	if rowType == nil || rowType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("table %s: entry %T is not a struct",
			tableName, sample)
	}

	fields := structs.Fields(sample)
	if len(fields) == 0 {
		return nil, fmt.Errorf("table %s: entry %T has no exported field",
			tableName, sample)
	}

	columns := make([]string, 0, len(fields))
	holders := make([]string, 0, len(fields))

	for _, f := range fields {
		sqlType, ok := columnTypes[f.Kind()]
		if !ok {
			return nil, fmt.Errorf("table %s: field %s has unsupported kind %s",
				tableName, f.Name(), f.Kind())
		}

		columns = append(columns, quote(f.Name())+" "+sqlType)
		holders = append(holders, "?")
	}

	return &schema{
		rowType: rowType,
		createSQL: fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)",
			quote(tableName), strings.Join(columns, ",\n\t")),
		insertSQL: fmt.Sprintf("INSERT INTO %s VALUES (%s)",
			quote(tableName), strings.Join(holders, ", ")),
	}, nil
}

// quote makes a name safe to use as an SQL identifier, even when it is a
// keyword such as Limit or Order.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteWriter is the DataRecorder that writes into a SQLite file.
type SQLiteWriter struct {
	*sql.DB

	path      string
	schemas   map[string]*schema
	batchSize int
	pending   int
	closed    bool
}

// NewSQLiteWriter creates a writer for path.sqlite3. Init must be called
// before use.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		path:      path,
		batchSize: defaultBatchSize,
		schemas:   make(map[string]*schema),
	}
}

// WithBatchSize sets how many entries are buffered before an automatic
// flush.
func (w *SQLiteWriter) WithBatchSize(n int) *SQLiteWriter {
	w.batchSize = n
	return w
}

// FileName returns the name of the database file.
func (w *SQLiteWriter) FileName() string {
	return w.path + ".sqlite3"
}

// Init creates the database file. It fails with ErrFileExists rather than
// adding tables to an older recording.
func (w *SQLiteWriter) Init() error {
	if w.path == "" {
		w.path = "pagesim_" + xid.New().String()
	}

	filename := w.FileName()

	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrFileExists, filename)
	}

	if err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return err
	}

	w.DB = db

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return nil
}

// CreateTable creates a table for entries of the sample's type. It panics if
// the table exists or if a field cannot be stored in a column.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) {
	if _, exists := w.schemas[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	s, err := newSchema(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	if _, err := w.Exec(s.createSQL); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", s.createSQL)
		panic(err)
	}

	w.schemas[tableName] = s
}

// InsertData buffers an entry. It panics if the table does not exist or if
// the entry type does not match the table.
func (w *SQLiteWriter) InsertData(tableName string, entry any) {
	s, exists := w.schemas[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != s.rowType {
		panic(fmt.Sprintf("entry type %T does not match table %s (%s)",
			entry, tableName, s.rowType))
	}

	s.pending = append(s.pending, structs.Values(entry))

	w.pending++
	if w.pending >= w.batchSize {
		w.Flush()
	}
}

// ListTables returns the table names in alphabetical order.
func (w *SQLiteWriter) ListTables() []string {
	names := make([]string, 0, len(w.schemas))
	for name := range w.schemas {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Flush writes the buffered entries in one transaction, table by table in
// name order.
func (w *SQLiteWriter) Flush() {
	if w.pending == 0 || w.closed {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		panic(err)
	}

	for _, name := range w.ListTables() {
		s := w.schemas[name]
		if len(s.pending) == 0 {
			continue
		}

		if err := writeRows(tx, s); err != nil {
			_ = tx.Rollback()
			panic(fmt.Errorf("flushing %s: %w", name, err))
		}

		s.pending = nil
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	w.pending = 0
}

func writeRows(tx *sql.Tx, s *schema) error {
	stmt, err := tx.Prepare(s.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range s.pending {
		if _, err := stmt.Exec(row...); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes the buffered entries and closes the database. Closing twice
// is a no-op.
func (w *SQLiteWriter) Close() error {
	if w.closed {
		return nil
	}

	w.Flush()
	w.closed = true

	return w.DB.Close()
}
