package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
	stmtBegin  = "-- +goose StatementBegin"
	stmtEnd    = "-- +goose StatementEnd"
)

// Lint checks every .sql file in source and reports all problems at once:
// file naming, duplicate versions, Up/Down markers in order and balanced
// statement blocks.
func Lint(source fs.FS) error {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var problems error
	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := migrationName.FindStringSubmatch(path.Base(name))
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_snake_case.sql", name))
			continue
		}
		if other, dup := versions[m[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(source, name)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, lintBody(name, string(body)))
	}
	return problems
}

func lintBody(name, body string) error {
	up := strings.Index(body, upMarker)
	down := strings.Index(body, downMarker)
	var problems error
	switch {
	case up < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, upMarker))
	case down < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", name, downMarker))
	case down < up:
		problems = multierr.Append(problems, fmt.Errorf("%s: Down section precedes Up", name))
	}
	if strings.Count(body, stmtBegin) != strings.Count(body, stmtEnd) {
		problems = multierr.Append(problems, fmt.Errorf("%s: unbalanced StatementBegin/StatementEnd", name))
	}
	return problems
}
