//go:build integration

package migrations

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getenv("DB_HOST", "localhost"),
		getenv("DB_PORT", "5432"),
		getenv("DB_USER", "poll"),
		getenv("DB_PASSWORD", "poll_password"),
		getenv("TEST_DB_NAME", "poll_test"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Silent)})
	require.NoError(t, err)

	resetSchema(t, db)
	t.Cleanup(func() { resetSchema(t, db) })
	return db
}

func resetSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, table := range []string{"question_images", "choices", "questions", "auth_user", "users", "schema_migrations", "failing_step", "first_step"} {
		require.NoError(t, db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q CASCADE`, table)).Error)
	}
}

type constraintRow struct {
	DeleteType string
	NotNull    bool
}

func inspectKey(t *testing.T, db *gorm.DB, fk ForeignKey) constraintRow {
	t.Helper()

	var row constraintRow
	err := db.Raw(`
        SELECT c.confdeltype::text AS delete_type, a.attnotnull AS not_null
        FROM pg_constraint c
        JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = ANY (c.conkey)
        WHERE c.contype = 'f' AND c.conname = ? AND c.conrelid = ?::regclass
    `, fk.Name, fk.Table).Scan(&row).Error
	require.NoError(t, err)
	return row
}

func TestRunnerAppliesAllMigrations(t *testing.T) {
	db := openTestDB(t)
	settings := Settings{UserTable: "auth_user"}
	runner := NewRunner(db, settings)
	ctx := context.Background()

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001", "0002", "0003", "0004"}, applied)

	for _, fk := range ExpectedForeignKeys(settings) {
		row := inspectKey(t, db, fk)
		action, err := ParseConstraintAction(row.DeleteType)
		require.NoError(t, err)
		assert.Equal(t, Cascade, action, fk.Name)
		assert.Equal(t, !fk.Nullable, row.NotNull, fk.Name)
	}

	again, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	statuses, err := runner.Status(ctx)
	require.NoError(t, err)
	for _, status := range statuses {
		assert.True(t, status.Applied, status.ID)
		assert.NotNil(t, status.AppliedAt)
	}
}

func TestRollbackRestoresNoAction(t *testing.T) {
	db := openTestDB(t)
	settings := DefaultSettings()
	runner := NewRunner(db, settings)
	ctx := context.Background()

	_, err := runner.Up(ctx)
	require.NoError(t, err)

	reverted, err := runner.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0004", reverted.ID)
	assert.False(t, db.Migrator().HasTable("question_images"))

	reverted, err = runner.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0003", reverted.ID)

	assert.Equal(t, "a", inspectKey(t, db, choiceQuestionKey()).DeleteType)
	createdBy := inspectKey(t, db, questionCreatedByKey(settings))
	assert.Equal(t, "a", createdBy.DeleteType)
	assert.False(t, createdBy.NotNull)

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0003", "0004"}, applied)
}

func TestRollbackWithNothingApplied(t *testing.T) {
	db := openTestDB(t)

	_, err := NewRunner(db, DefaultSettings()).Rollback(context.Background())
	assert.ErrorIs(t, err, ErrNothingToRollback)
}

func TestDeletingUserCascades(t *testing.T) {
	db := openTestDB(t)
	_, err := NewRunner(db, DefaultSettings()).Up(context.Background())
	require.NoError(t, err)

	userID, questionID, choiceID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES (?, 'ada', 'ada@example.com', 'x')`, userID).Error)
	require.NoError(t, db.Exec(`INSERT INTO questions (id, question_text, pub_date, created_by_id) VALUES (?, 'Tabs?', ?, ?)`, questionID, time.Now(), userID).Error)
	require.NoError(t, db.Exec(`INSERT INTO questions (id, question_text, pub_date) VALUES (?, 'Anonymous', ?)`, uuid.New(), time.Now()).Error)
	require.NoError(t, db.Exec(`INSERT INTO choices (id, question_id, choice_text) VALUES (?, ?, 'Yes')`, choiceID, questionID).Error)
	require.NoError(t, db.Exec(`INSERT INTO question_images (id, question_id, object_key, content_type, size) VALUES (?, ?, 'k', 'image/png', 10)`, uuid.New(), questionID).Error)

	require.NoError(t, db.Exec(`DELETE FROM users WHERE id = ?`, userID).Error)

	var questions, choices, images int64
	require.NoError(t, db.Table("questions").Count(&questions).Error)
	require.NoError(t, db.Table("choices").Count(&choices).Error)
	require.NoError(t, db.Table("question_images").Count(&images).Error)
	assert.Equal(t, int64(1), questions)
	assert.Zero(t, choices)
	assert.Zero(t, images)
}

func trackedIDs(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var ids []string
	require.NoError(t, db.Raw("SELECT id FROM schema_migrations ORDER BY id").Scan(&ids).Error)
	return ids
}

func TestFailedStepLeavesNoTrace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	stepErr := errors.New("step exploded")

	steps := []Migration{
		{
			ID:   "a",
			Name: "first",
			Up:   func(tx *gorm.DB) error { return tx.Exec("CREATE TABLE first_step (id int)").Error },
			Down: func(tx *gorm.DB) error { return tx.Exec("DROP TABLE first_step").Error },
		},
		{
			ID:           "b",
			Name:         "failing",
			Dependencies: []string{"a"},
			Up: func(tx *gorm.DB) error {
				if err := tx.Exec("CREATE TABLE failing_step (id int)").Error; err != nil {
					return err
				}
				return stepErr
			},
			Down: func(tx *gorm.DB) error { return nil },
		},
	}

	applied, err := NewRunnerWithMigrations(db, steps).Up(ctx)
	require.ErrorIs(t, err, stepErr)
	assert.Equal(t, []string{"a"}, applied)

	assert.True(t, db.Migrator().HasTable("first_step"))
	assert.False(t, db.Migrator().HasTable("failing_step"))
	assert.Equal(t, []string{"a"}, trackedIDs(t, db))
}

func TestInconsistentHistoryAppliesNothing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, createMigrationsTable(db))
	require.NoError(t, recordMigration(db, "0003", "cascade_question_relations"))

	applied, err := NewRunner(db, DefaultSettings()).Up(ctx)
	assert.ErrorIs(t, err, ErrInconsistentHistory)
	assert.Empty(t, applied)

	assert.False(t, db.Migrator().HasTable("questions"))
	assert.False(t, db.Migrator().HasTable("users"))
	assert.Equal(t, []string{"0003"}, trackedIDs(t, db))
}

func TestRollbackRejectsUnknownHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	runner := NewRunner(db, DefaultSettings())

	_, err := runner.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, recordMigration(db, "9999", "from_another_branch"))

	reverted, err := runner.Rollback(ctx)
	assert.ErrorIs(t, err, ErrUnknownMigration)
	assert.Nil(t, reverted)

	assert.True(t, db.Migrator().HasTable("question_images"))
	assert.Equal(t, []string{"0001", "0002", "0003", "0004", "9999"}, trackedIDs(t, db))
}
