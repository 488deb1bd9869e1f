package db

import (
	"fmt"

	types "github.com/yungbote/biomarker-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.AllModels()...)
}

// EnsureIndexes adds Postgres-only indexes that gorm tags cannot express.
// It is a no-op on other dialects.
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_documents_user_created",
			sql:  `CREATE INDEX IF NOT EXISTS idx_documents_user_created ON documents (user_id, created_at DESC);`,
		},
		{
			name: "idx_documents_processing",
			sql: `CREATE INDEX IF NOT EXISTS idx_documents_processing
				ON documents (processing_started_at)
				WHERE status = 'processing';`,
		},
		{
			name: "idx_biomarkers_aliases",
			sql:  `CREATE INDEX IF NOT EXISTS idx_biomarkers_aliases ON biomarkers USING GIN (aliases);`,
		},
		{
			name: "idx_partner_products_tags",
			sql:  `CREATE INDEX IF NOT EXISTS idx_partner_products_tags ON partner_products USING GIN (tags);`,
		},
		{
			name: "idx_orders_user_created",
			sql:  `CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at DESC);`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
