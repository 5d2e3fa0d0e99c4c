package migrations

import (
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// migration0001Up creates the user, question and choice tables
func migration0001Up(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		users := pq.QuoteIdentifier(settings.userTable())

		tables := []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id UUID PRIMARY KEY,
            username VARCHAR(150) NOT NULL,
            email VARCHAR(254) NOT NULL,
            password_hash TEXT NOT NULL,
            is_staff BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`, users),

			`CREATE TABLE IF NOT EXISTS questions (
            id UUID PRIMARY KEY,
            question_text VARCHAR(200) NOT NULL,
            pub_date TIMESTAMP WITH TIME ZONE NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

			`CREATE TABLE IF NOT EXISTS choices (
            id UUID PRIMARY KEY,
            question_id UUID NOT NULL,
            choice_text VARCHAR(200) NOT NULL,
            votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0)
        )`,
		}
		if err := execAll(db, tables); err != nil {
			return err
		}

		if err := execAll(db, choiceQuestionKey().AddStatements()); err != nil {
			return err
		}

		indexes := []string{
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(username)", indexName(settings.userTable(), "username"), users),
			"CREATE INDEX IF NOT EXISTS idx_questions_pub_date ON questions(pub_date DESC)",
			"CREATE INDEX IF NOT EXISTS idx_choices_question ON choices(question_id)",
		}
		return execAll(db, indexes)
	}
}

// migration0001Down drops the tables created by migration0001Up
func migration0001Down(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		tables := []string{
			choicesTable,
			questionsTable,
			settings.userTable(),
		}

		for _, table := range tables {
			if err := db.Exec("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(table) + " CASCADE").Error; err != nil {
				return err
			}
		}

		return nil
	}
}
