// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ludora/ludora-backend/internal/config"
	"github.com/ludora/ludora-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Purchase{},
		&models.TeacherLink{},
		&models.ParentConsent{},
		&models.Classroom{},
		&models.ClassroomMembership{},
		&models.AdminSettings{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_creator ON products(creator_id)",
		"CREATE INDEX IF NOT EXISTS idx_products_type_status ON products(product_type, status)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Purchase indexes
		"CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_buyer_status ON purchases(buyer_id, payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_purchasable ON purchases(purchasable_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_legacy_product ON purchases(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchases_created_at ON purchases(created_at DESC)",

		// Consent indexes
		"CREATE INDEX IF NOT EXISTS idx_teacher_links_teacher ON teacher_links(teacher_id)",
		"CREATE INDEX IF NOT EXISTS idx_parent_consents_student ON parent_consents(student_id, revoked_at)",

		// Classroom indexes
		"CREATE INDEX IF NOT EXISTS idx_classrooms_teacher ON classrooms(teacher_id)",
		"CREATE INDEX IF NOT EXISTS idx_classrooms_invitation ON classrooms(invitation_code)",
		"CREATE INDEX IF NOT EXISTS idx_memberships_student ON classroom_memberships(student_id)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",

		// Full-text search indexes
		"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN(to_tsvector('english', title || ' ' || description))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@ludora.app",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Create default platform settings
	defaultSettings := []models.AdminSettings{
		{
			Category:    "general",
			Key:         "platform_name",
			Value:       models.JSONB{"value": "Ludora"},
			DataType:    "string",
			Description: "Platform name displayed to users",
		},
		{
			Category:    "consent",
			Key:         "enforce_parent_consent",
			Value:       models.JSONB{"value": true},
			DataType:    "boolean",
			Description: "Require parent consent for student accounts",
		},
		{
			Category:    "content",
			Key:         "max_file_size",
			Value:       models.JSONB{"value": 50},
			DataType:    "integer",
			Description: "Maximum file size in MB for uploads",
		},
	}

	for _, setting := range defaultSettings {
		var count int64
		db.Model(&models.AdminSettings{}).Where("category = ? AND key = ?", setting.Category, setting.Key).Count(&count)

		if count == 0 {
			var admin models.User
			if err := db.Where("user_type = ?", models.UserTypeAdmin).First(&admin).Error; err == nil {
				setting.UpdatedBy = admin.ID
				if err := db.Create(&setting).Error; err != nil {
					log.Printf("Warning: Failed to create setting %s.%s: %v", setting.Category, setting.Key, err)
				}
			}
		}
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
