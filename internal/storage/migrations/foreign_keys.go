package migrations

import (
	"fmt"

	"github.com/lib/pq"
)

// ReferentialAction is the ON DELETE behavior of a foreign key
type ReferentialAction string

const (
	NoAction   ReferentialAction = "NO ACTION"
	Restrict   ReferentialAction = "RESTRICT"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// ParseConstraintAction maps pg_constraint.confdeltype codes to actions
func ParseConstraintAction(code string) (ReferentialAction, error) {
	switch code {
	case "a":
		return NoAction, nil
	case "r":
		return Restrict, nil
	case "c":
		return Cascade, nil
	case "n":
		return SetNull, nil
	case "d":
		return SetDefault, nil
	default:
		return "", fmt.Errorf("unknown referential action code %q", code)
	}
}

// ForeignKey describes a named single-column foreign key constraint
type ForeignKey struct {
	Table            string
	Name             string
	Column           string
	References       string
	ReferencedColumn string
	OnDelete         ReferentialAction
	Nullable         bool
}

// WithOnDelete returns a copy of the key with a different delete action
func (fk ForeignKey) WithOnDelete(action ReferentialAction) ForeignKey {
	fk.OnDelete = action
	return fk
}

func (fk ForeignKey) referencedColumn() string {
	if fk.ReferencedColumn == "" {
		return "id"
	}
	return fk.ReferencedColumn
}

func (fk ForeignKey) onDelete() ReferentialAction {
	if fk.OnDelete == "" {
		return NoAction
	}
	return fk.OnDelete
}

// DropStatement drops the constraint if present
func (fk ForeignKey) DropStatement() string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s",
		pq.QuoteIdentifier(fk.Table), pq.QuoteIdentifier(fk.Name))
}

// AddStatements creates the constraint on an existing column
func (fk ForeignKey) AddStatements() []string {
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			pq.QuoteIdentifier(fk.Table),
			pq.QuoteIdentifier(fk.Name),
			pq.QuoteIdentifier(fk.Column),
			pq.QuoteIdentifier(fk.References),
			pq.QuoteIdentifier(fk.referencedColumn()),
			fk.onDelete()),
	}
}

// AlterStatements replaces the constraint and applies the column nullability.
// The statements are safe to replay.
func (fk ForeignKey) AlterStatements() []string {
	nullability := "SET NOT NULL"
	if fk.Nullable {
		nullability = "DROP NOT NULL"
	}

	statements := []string{
		fk.DropStatement(),
		fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s",
			pq.QuoteIdentifier(fk.Table), pq.QuoteIdentifier(fk.Column), nullability),
	}
	return append(statements, fk.AddStatements()...)
}
