package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/labcompare/push-dispatcher/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_scheduled_tasks",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.TaskModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_send_at ON scheduled_tasks (send_at)`,
					`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_journey_id ON scheduled_tasks (journey_id) WHERE journey_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_user_id ON scheduled_tasks (user_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.TaskModel{})
			},
		},
		{
			ID: "000002_create_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.UserModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.UserModel{})
			},
		},
		{
			ID: "000003_create_journeys",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.JourneyModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.JourneyModel{})
			},
		},
	})

	return m.Migrate()
}
