package tracing

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// EventTables lists the tables written by the DBTracer in the order the
// events are usually reported.
var EventTables = []string{
	AdmissionTable,
	TranslationTable,
	RemovalTable,
	RejectionTable,
	InconsistencyTable,
}

// TraceQuery selects rows of a recorded trace. Zero fields match every row.
type TraceQuery struct {
	Session string
	JobID   int

	// Operation only applies to the rejection and the inconsistency tables.
	Operation string

	// Limit caps the number of rows listed. It does not apply to counts.
	Limit int
}

// TraceReader reads a trace written by a DBTracer into a SQLite file.
type TraceReader struct {
	*sql.DB
}

// NewTraceReader opens a recorded trace. The file must exist.
func NewTraceReader(filename string) (*TraceReader, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return &TraceReader{DB: db}, nil
}

// ListSessions returns the IDs of the sessions found in the trace.
func (r *TraceReader) ListSessions(ctx context.Context) ([]string, error) {
	selects := make([]string, len(EventTables))
	for i, table := range EventTables {
		selects[i] = fmt.Sprintf(`SELECT Session FROM "%s"`, table)
	}

	rows, err := r.QueryContext(ctx,
		strings.Join(selects, " UNION ")+" ORDER BY Session")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string

	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, err
		}

		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// CountEvents returns the number of rows of an event table that match the
// query.
func (r *TraceReader) CountEvents(
	ctx context.Context,
	table string,
	query TraceQuery,
) (int, error) {
	if !isEventTable(table) {
		return 0, fmt.Errorf("unknown event table %q", table)
	}

	where, args := query.conditions(isErrorTable(table))

	var count int

	err := r.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM "%s"%s`, table, where),
		args...).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ListAdmissions returns the matching admissions, latest first.
func (r *TraceReader) ListAdmissions(
	ctx context.Context,
	query TraceQuery,
) ([]AdmissionEntry, error) {
	where, args := query.conditions(false)
	sqlStr := `
		SELECT Seq, Session, JobID, Name, Size, NumPages, Frames,
			InternalFragmentation
		FROM "` + AdmissionTable + `"` + where + `
		ORDER BY Seq DESC`
	sqlStr, args = query.limit(sqlStr, args)

	rows, err := r.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admissions := []AdmissionEntry{}

	for rows.Next() {
		a := AdmissionEntry{}

		err := rows.Scan(
			&a.Seq,
			&a.Session,
			&a.JobID,
			&a.Name,
			&a.Size,
			&a.NumPages,
			&a.Frames,
			&a.InternalFragmentation,
		)
		if err != nil {
			return nil, err
		}

		admissions = append(admissions, a)
	}

	return admissions, rows.Err()
}

// ListErrors returns the matching rows of the rejection or the inconsistency
// table, latest first.
func (r *TraceReader) ListErrors(
	ctx context.Context,
	table string,
	query TraceQuery,
) ([]ErrorEntry, error) {
	if !isErrorTable(table) {
		return nil, fmt.Errorf("%q is not an error table", table)
	}

	where, args := query.conditions(true)
	sqlStr := `
		SELECT Seq, Session, Operation, Kind, JobID, PageID, Input, Bound,
			Message
		FROM "` + table + `"` + where + `
		ORDER BY Seq DESC`
	sqlStr, args = query.limit(sqlStr, args)

	rows, err := r.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []ErrorEntry{}

	for rows.Next() {
		e := ErrorEntry{}

		err := rows.Scan(
			&e.Seq,
			&e.Session,
			&e.Operation,
			&e.Kind,
			&e.JobID,
			&e.PageID,
			&e.Input,
			&e.Bound,
			&e.Message,
		)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (q TraceQuery) conditions(withOperation bool) (string, []any) {
	clauses := []string{}
	args := []any{}

	if q.Session != "" {
		clauses = append(clauses, "Session = ?")
		args = append(args, q.Session)
	}

	if q.JobID != 0 {
		clauses = append(clauses, "JobID = ?")
		args = append(args, q.JobID)
	}

	if withOperation && q.Operation != "" {
		clauses = append(clauses, "Operation = ?")
		args = append(args, q.Operation)
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q TraceQuery) limit(sqlStr string, args []any) (string, []any) {
	if q.Limit <= 0 {
		return sqlStr, args
	}

	return sqlStr + " LIMIT ?", append(args, q.Limit)
}

func isEventTable(table string) bool {
	for _, t := range EventTables {
		if t == table {
			return true
		}
	}

	return false
}

func isErrorTable(table string) bool {
	return table == RejectionTable || table == InconsistencyTable
}
