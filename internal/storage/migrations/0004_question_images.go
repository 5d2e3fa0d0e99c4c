package migrations

import "gorm.io/gorm"

// migration0004Up creates the question image table
func migration0004Up(db *gorm.DB) error {
	if err := db.Exec(`
        CREATE TABLE IF NOT EXISTS question_images (
            id UUID PRIMARY KEY,
            question_id UUID NOT NULL,
            object_key VARCHAR(255) NOT NULL UNIQUE,
            content_type VARCHAR(100) NOT NULL,
            size BIGINT NOT NULL CHECK (size > 0),
            order_num INTEGER NOT NULL DEFAULT 0,
            uploaded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
        )
    `).Error; err != nil {
		return err
	}

	if err := execAll(db, imageQuestionKey().AddStatements()); err != nil {
		return err
	}

	return db.Exec("CREATE INDEX IF NOT EXISTS idx_question_images_question ON question_images(question_id, order_num)").Error
}

func migration0004Down(db *gorm.DB) error {
	return db.Exec("DROP TABLE IF EXISTS question_images CASCADE").Error
}
