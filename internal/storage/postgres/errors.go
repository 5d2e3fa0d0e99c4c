package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/domain/common"
)

// translateError maps driver and gorm errors onto the domain sentinels,
// keeping the original error in the chain.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w: %w", op, common.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, common.ErrConflict, err)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, common.ErrInvalidReference, err)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException:
			return fmt.Errorf("%s: %w: %w", op, common.ErrInvalidInput, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
