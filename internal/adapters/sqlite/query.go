package sqlite

import (
	"context"
	"strings"

	"marginalia/internal/domain"
)

var sortColumns = map[domain.SortField]string{
	domain.SortByName:     "e.name",
	domain.SortByModified: "e.modified_at",
	domain.SortBySize:     "e.size",
	domain.SortByWritten:  "e.written_at",
}

// Query returns entries matching every set filter, each with its tag count
func (s *Store) Query(ctx context.Context, q domain.EntryQuery) ([]domain.EntryRow, error) {
	query, args := buildQuery(q)
	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EntryRow
	for rows.Next() {
		var tagCount int
		e, err := scanEntry(rows, &tagCount)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.EntryRow{IndexedEntry: *e, TagCount: tagCount})
	}
	return out, rows.Err()
}

func buildQuery(q domain.EntryQuery) (string, []any) {
	var (
		where []string
		args  []any
	)

	for _, tag := range q.Tags {
		where = append(where, `EXISTS (SELECT 1 FROM tags t WHERE t.content_id = e.content_id AND t.tag = ?)`)
		args = append(args, tag)
	}

	var kinds []string
	for _, k := range q.Kinds {
		if k == domain.KindAny {
			continue
		}
		kinds = append(kinds, "?")
		args = append(args, string(k))
	}
	if len(kinds) > 0 {
		where = append(where, `e.kind IN (`+strings.Join(kinds, ", ")+`)`)
	}

	if q.Visibility != nil {
		where = append(where, `e.visibility = ?`)
		args = append(args, int(*q.Visibility))
	}
	if q.Location != "" {
		clause, locArgs := locationClause("e.location", q.Location, q.Recursive)
		where = append(where, clause)
		args = append(args, locArgs...)
	}
	if !q.ModifiedAfter.IsZero() {
		where = append(where, `e.modified_at > ?`)
		args = append(args, q.ModifiedAfter.UnixNano())
	}
	if !q.ModifiedBefore.IsZero() {
		where = append(where, `e.modified_at < ?`)
		args = append(args, q.ModifiedBefore.UnixNano())
	}
	if q.NameContains != "" {
		where = append(where, `instr(lower(e.name), lower(?)) > 0`)
		args = append(args, q.NameContains)
	}

	var b strings.Builder
	b.WriteString(`SELECT `)
	for i, col := range strings.Split(entryColumns, ", ") {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("e." + col)
	}
	b.WriteString(`, (SELECT COUNT(*) FROM tags t WHERE t.content_id = e.content_id) AS tag_count FROM entries e`)
	if len(where) > 0 {
		b.WriteString(` WHERE ` + strings.Join(where, " AND "))
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = sortColumns[domain.SortByName]
	}
	dir := " ASC"
	if q.Descending {
		dir = " DESC"
	}
	b.WriteString(` ORDER BY ` + col + dir + `, e.content_id`)

	switch {
	case q.Limit > 0:
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, q.Limit, max(q.Offset, 0))
	case q.Offset > 0:
		b.WriteString(` LIMIT -1 OFFSET ?`)
		args = append(args, q.Offset)
	}
	return b.String(), args
}
