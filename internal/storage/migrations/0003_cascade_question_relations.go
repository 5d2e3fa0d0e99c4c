package migrations

import "gorm.io/gorm"

// migration0003Up makes deleting a question remove its choices, and deleting
// a user remove the questions they created. created_by stays optional.
func migration0003Up(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		keys := []ForeignKey{
			choiceQuestionKey().WithOnDelete(Cascade),
			questionCreatedByKey(settings).WithOnDelete(Cascade),
		}

		for _, key := range keys {
			if err := execAll(db, key.AlterStatements()); err != nil {
				return err
			}
		}
		return nil
	}
}

// migration0003Down restores both keys to NO ACTION. created_by_id is left
// nullable because rows written since may carry no creator.
func migration0003Down(settings Settings) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		keys := []ForeignKey{
			choiceQuestionKey(),
			questionCreatedByKey(settings),
		}

		for _, key := range keys {
			if err := execAll(db, key.AlterStatements()); err != nil {
				return err
			}
		}
		return nil
	}
}
