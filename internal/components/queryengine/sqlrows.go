package queryengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TableName is the table part of a dotted identifier.
func TableName(identifier string) string {
	return identifier[strings.LastIndex(identifier, ".")+1:]
}

// quote renders a SQL string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// queryRows runs stmt and collects every row. []byte values are converted
// to strings. A statement without a result set yields an empty slice.
func queryRows(ctx context.Context, db *sql.DB, stmt string) ([][]any, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := [][]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// queryProperties runs a DESCRIBE statement and maps the property column to
// the property_value column.
func queryProperties(ctx context.Context, db *sql.DB, stmt string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	propIdx, valueIdx := -1, -1
	for i, c := range cols {
		switch strings.ToLower(c) {
		case "property":
			propIdx = i
		case "property_value":
			valueIdx = i
		}
	}
	if propIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("unexpected columns %v", cols)
	}

	props := map[string]string{}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		props[values[propIdx].String] = values[valueIdx].String
	}
	return props, rows.Err()
}
