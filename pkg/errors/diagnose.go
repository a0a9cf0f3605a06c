package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the typed code, every
// link of the wrap chain and, when Postgres produced the failure, the server
// error details. Empty values are omitted.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	var pg *pgconn.PgError
	var legacy *pq.Error
	switch {
	case stderrors.As(err, &pg):
		putNonEmpty(fields, "pg_code", pg.Code)
		putNonEmpty(fields, "pg_constraint", pg.ConstraintName)
		putNonEmpty(fields, "pg_table", pg.TableName)
		putNonEmpty(fields, "pg_column", pg.ColumnName)
		putNonEmpty(fields, "pg_detail", pg.Detail)
	case stderrors.As(err, &legacy):
		putNonEmpty(fields, "pg_code", string(legacy.Code))
		putNonEmpty(fields, "pg_constraint", legacy.Constraint)
		putNonEmpty(fields, "pg_table", legacy.Table)
		putNonEmpty(fields, "pg_column", legacy.Column)
		putNonEmpty(fields, "pg_detail", legacy.Detail)
	}
	return fields
}

func putNonEmpty(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
