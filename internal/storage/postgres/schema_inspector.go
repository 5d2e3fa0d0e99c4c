package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage/migrations"
)

// SchemaInspector reads constraint and table metadata from the system catalogs
type SchemaInspector struct {
	db  *gorm.DB
	log *log.Logger
}

// NewSchemaInspector creates a new schema inspector
func NewSchemaInspector(db *gorm.DB) *SchemaInspector {
	return &SchemaInspector{
		db:  db,
		log: logger.For(logger.Repository, "schema_inspector"),
	}
}

// ForeignKeyInfo is a foreign key as it currently exists in the database
type ForeignKeyInfo struct {
	Table      string                       `json:"table"`
	Name       string                       `json:"name"`
	Column     string                       `json:"column"`
	References string                       `json:"references"`
	OnDelete   migrations.ReferentialAction `json:"on_delete"`
	Nullable   bool                         `json:"nullable"`
}

// Drift describes one expected foreign key that does not match the database
type Drift struct {
	Expected migrations.ForeignKey `json:"expected"`
	Actual   *ForeignKeyInfo       `json:"actual,omitempty"`
	Reason   string                `json:"reason"`
}

// TableStats represents table statistics
type TableStats struct {
	TableName string `json:"table_name"`
	RowCount  int64  `json:"row_count"`
	TableSize string `json:"table_size"`
	IndexSize string `json:"index_size"`
}

type foreignKeyRow struct {
	ConstraintName string
	RefTable       string
	DeleteType     string
	NotNull        bool
}

// ForeignKey returns the foreign key on table.column, or nil when the column
// has no foreign key constraint.
func (i *SchemaInspector) ForeignKey(ctx context.Context, table, column string) (*ForeignKeyInfo, error) {
	var rows []foreignKeyRow
	err := i.db.WithContext(ctx).Raw(`
		SELECT
			c.conname AS constraint_name,
			c.confrelid::regclass::text AS ref_table,
			c.confdeltype::text AS delete_type,
			a.attnotnull AS not_null
		FROM pg_constraint c
		JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = c.conkey[1]
		WHERE c.contype = 'f'
		AND c.conrelid = to_regclass(?)
		AND array_length(c.conkey, 1) = 1
		AND a.attname = ?
		ORDER BY c.conname
	`, quoteTable(table), column).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to inspect foreign key %s.%s: %w", table, column, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	action, err := migrations.ParseConstraintAction(row.DeleteType)
	if err != nil {
		return nil, err
	}

	return &ForeignKeyInfo{
		Table:      table,
		Name:       row.ConstraintName,
		Column:     column,
		References: unquoteTable(row.RefTable),
		OnDelete:   action,
		Nullable:   !row.NotNull,
	}, nil
}

// Verify compares the expected foreign keys against the database and
// returns every mismatch
func (i *SchemaInspector) Verify(ctx context.Context, expected []migrations.ForeignKey) ([]Drift, error) {
	var drifts []Drift

	for _, want := range expected {
		actual, err := i.ForeignKey(ctx, want.Table, want.Column)
		if err != nil {
			return nil, err
		}

		if reason := compareForeignKey(want, actual); reason != "" {
			drifts = append(drifts, Drift{Expected: want, Actual: actual, Reason: reason})
		}
	}

	i.log.Debug("Schema verification completed", "checked", len(expected), "drifts", len(drifts))
	return drifts, nil
}

func compareForeignKey(want migrations.ForeignKey, actual *ForeignKeyInfo) string {
	if actual == nil {
		return "foreign key missing"
	}
	if actual.Name != want.Name {
		return fmt.Sprintf("constraint named %s, want %s", actual.Name, want.Name)
	}
	if actual.References != want.References {
		return fmt.Sprintf("references %s, want %s", actual.References, want.References)
	}
	wantAction := want.OnDelete
	if wantAction == "" {
		wantAction = migrations.NoAction
	}
	if actual.OnDelete != wantAction {
		return fmt.Sprintf("on delete %s, want %s", actual.OnDelete, wantAction)
	}
	if actual.Nullable != want.Nullable {
		return fmt.Sprintf("nullable %t, want %t", actual.Nullable, want.Nullable)
	}
	return ""
}

// TableStats returns size and live row counts for the given tables
func (i *SchemaInspector) TableStats(ctx context.Context, tables []string) ([]TableStats, error) {
	var stats []TableStats

	err := i.db.WithContext(ctx).Raw(`
		SELECT
			relname AS table_name,
			n_live_tup AS row_count,
			pg_size_pretty(pg_total_relation_size(relid)) AS table_size,
			pg_size_pretty(pg_indexes_size(relid)) AS index_size
		FROM pg_stat_user_tables
		WHERE relname IN ?
		ORDER BY relname
	`, tables).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read table stats: %w", err)
	}

	return stats, nil
}

// quoteTable quotes a table name for to_regclass so mixed-case names resolve
func quoteTable(table string) string {
	return pq.QuoteIdentifier(table)
}

// unquoteTable strips the quotes regclass::text adds around non-lowercase names
func unquoteTable(table string) string {
	if len(table) >= 2 && table[0] == '"' && table[len(table)-1] == '"' {
		return table[1 : len(table)-1]
	}
	return table
}
