package migrations

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateMigration  = errors.New("duplicate migration id")
	ErrUnknownDependency   = errors.New("migration depends on an unknown migration")
	ErrDependencyCycle     = errors.New("migration dependencies form a cycle")
	ErrInconsistentHistory = errors.New("applied migration has unapplied dependency")
	ErrUnknownMigration    = errors.New("applied migration is not registered")
	ErrNothingToRollback   = errors.New("no migrations to rollback")
)

// Plan orders migrations so every migration comes after its dependencies.
// Among migrations that are ready at the same time registration order wins.
func Plan(migrations []Migration) ([]Migration, error) {
	index := make(map[string]int, len(migrations))
	for i, m := range migrations {
		if _, ok := index[m.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMigration, m.ID)
		}
		index[m.ID] = i
	}

	pending := make([]int, len(migrations))
	dependents := make([][]int, len(migrations))
	for i, m := range migrations {
		for _, dep := range m.Dependencies {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownDependency, m.ID, dep)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	done := make([]bool, len(migrations))
	ordered := make([]Migration, 0, len(migrations))
	for len(ordered) < len(migrations) {
		next := -1
		for i := range migrations {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			var stuck []string
			for i, m := range migrations {
				if !done[i] {
					stuck = append(stuck, m.ID)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}

		done[next] = true
		ordered = append(ordered, migrations[next])
		for _, d := range dependents[next] {
			pending[d]--
		}
	}

	return ordered, nil
}

// checkHistory verifies that every applied migration has its dependencies applied
func checkHistory(planned []Migration, applied map[string]bool) error {
	known := make(map[string]bool, len(planned))
	for _, m := range planned {
		known[m.ID] = true
	}
	for id := range applied {
		if !known[id] {
			return fmt.Errorf("%w: %s", ErrUnknownMigration, id)
		}
	}

	for _, m := range planned {
		if !applied[m.ID] {
			continue
		}
		for _, dep := range m.Dependencies {
			if !applied[dep] {
				return fmt.Errorf("%w: %s is applied but %s is not", ErrInconsistentHistory, m.ID, dep)
			}
		}
	}
	return nil
}
