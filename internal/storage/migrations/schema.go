package migrations

import (
	"fmt"

	"github.com/lib/pq"
)

const (
	questionsTable = "questions"
	choicesTable   = "choices"
	imagesTable    = "question_images"
)

// choiceQuestionKey is choices.question_id -> questions.id as first created
func choiceQuestionKey() ForeignKey {
	return ForeignKey{
		Table:      choicesTable,
		Name:       "fk_choices_question",
		Column:     "question_id",
		References: questionsTable,
		OnDelete:   NoAction,
	}
}

// questionCreatedByKey is questions.created_by_id -> <user table>.id as first created
func questionCreatedByKey(settings Settings) ForeignKey {
	return ForeignKey{
		Table:      questionsTable,
		Name:       "fk_questions_created_by",
		Column:     "created_by_id",
		References: settings.userTable(),
		OnDelete:   NoAction,
		Nullable:   true,
	}
}

func imageQuestionKey() ForeignKey {
	return ForeignKey{
		Table:      imagesTable,
		Name:       "fk_question_images_question",
		Column:     "question_id",
		References: questionsTable,
		OnDelete:   Cascade,
	}
}

// ExpectedForeignKeys returns the foreign keys as they stand after every
// registered migration has been applied
func ExpectedForeignKeys(settings Settings) []ForeignKey {
	return []ForeignKey{
		choiceQuestionKey().WithOnDelete(Cascade),
		questionCreatedByKey(settings).WithOnDelete(Cascade),
		imageQuestionKey(),
	}
}

func indexName(table, suffix string) string {
	return pq.QuoteIdentifier(fmt.Sprintf("idx_%s_%s", table, suffix))
}
