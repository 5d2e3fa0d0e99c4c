package migrations

import "gorm.io/gorm"

// migration0002Up links questions to the user who created them
func migration0002Up(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		if err := db.Exec("ALTER TABLE questions ADD COLUMN IF NOT EXISTS created_by_id UUID").Error; err != nil {
			return err
		}

		if err := execAll(db, questionCreatedByKey(settings).AddStatements()); err != nil {
			return err
		}

		return db.Exec("CREATE INDEX IF NOT EXISTS idx_questions_created_by ON questions(created_by_id)").Error
	}
}

func migration0002Down(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		statements := []string{
			"DROP INDEX IF EXISTS idx_questions_created_by",
			questionCreatedByKey(settings).DropStatement(),
			"ALTER TABLE questions DROP COLUMN IF EXISTS created_by_id",
		}
		return execAll(db, statements)
	}
}
