package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
	"github.com/yuvalk87/mofet-forms-app/pkg/config"
	"github.com/yuvalk87/mofet-forms-app/pkg/logger"
)

// InitDatabase 初始化数据库（支持 MySQL 和 PostgreSQL）
func InitDatabase(cfg *config.DatabaseConfig) error {
	var err error
	var dialector gorm.Dialector

	// 根据配置选择数据库驱动
	switch cfg.Driver {
	case "postgres", "postgresql":
		// PostgreSQL: 先创建数据库（如果不存在）
		if err := createPostgresDatabase(cfg); err != nil {
			return fmt.Errorf("failed to create PostgreSQL database: %w", err)
		}
		dialector = postgres.Open(cfg.DSN())
	case "mysql", "":
		// MySQL: 先创建数据库（如果不存在）
		if err := createMySQLDatabase(cfg); err != nil {
			return fmt.Errorf("failed to create MySQL database: %w", err)
		}
		dialector = mysql.Open(cfg.DSN())
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", cfg.Driver)
	}

	logger.Infof("Connecting to %s database...", cfg.Driver)

	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns > cfg.MaxOpenConns {
		maxIdleConns = cfg.MaxOpenConns
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	logger.Infof("Database connection pool configured: MaxOpenConns=%d, MaxIdleConns=%d, ConnMaxLifetime=%ds",
		cfg.MaxOpenConns, maxIdleConns, cfg.ConnMaxLifetime)

	// 立即 Ping 数据库以确保连接可用
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Database connection verified successfully")
	return nil
}

// createMySQLDatabase 创建 MySQL 数据库（如果不存在）
// 使用 database/sql 而不是 GORM，避免影响主连接
func createMySQLDatabase(cfg *config.DatabaseConfig) error {
	dsnWithoutDB := fmt.Sprintf("%s:%s@tcp(%s:%d)/?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port)

	db, err := sql.Open("mysql", dsnWithoutDB)
	if err != nil {
		return fmt.Errorf("failed to connect to MySQL server: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.DBName))
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
	}
	return nil
}

// createPostgresDatabase 创建 PostgreSQL 数据库（如果不存在）
func createPostgresDatabase(cfg *config.DatabaseConfig) error {
	dsnWithoutDB := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	db, err := sql.Open("postgres", dsnWithoutDB)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL server: %w", err)
	}
	defer db.Close()

	// PostgreSQL 不支持 CREATE DATABASE IF NOT EXISTS，先查询再创建
	var exists bool
	err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}
	if !exists {
		if _, err := db.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DBName)); err != nil {
			return fmt.Errorf("failed to create database %s: %w", cfg.DBName, err)
		}
	}
	return nil
}

// AutoMigrateAll 迁移全部业务表
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.UserRole{},
		&model.FormTemplate{},
		&model.Form{},
		&model.FormApproval{},
		&model.OTPCode{},
		&model.DynamicList{},
	)
}

// SeedBaseline 初始化基础数据：内置管理员与基础角色。
// 幂等：已有数据时不重复写入。
func SeedBaseline(db *gorm.DB) error {
	// 内置管理员
	var adminCount int64
	if err := db.Model(&model.User{}).Where("role = ?", "admin").Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount == 0 {
		password := os.Getenv("ADMIN_INITIAL_PASSWORD")
		if password == "" {
			password = "admin123"
			logger.Warnf("⚠️  Using default admin password, change it after first login")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin := model.User{
			ID:       uuid.New().String(),
			Username: "admin",
			Password: string(hashed),
			Email:    "admin@mofet.local",
			FullName: "System Administrator",
			Role:     "admin",
			Status:   "active",
		}
		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		logger.Infof("Seeded built-in admin user (email: %s)", admin.Email)
	}

	// 内置审批角色
	baseRoles := []model.Role{
		{Name: "direct_manager", NameHebrew: "מנהל ישיר", Description: "Direct manager approval"},
		{Name: "department_head", NameHebrew: "ראש מחלקה", Description: "Department head approval"},
		{Name: "hr", NameHebrew: "משאבי אנוש", Description: "Human resources approval"},
	}
	for _, role := range baseRoles {
		var count int64
		if err := db.Model(&model.Role{}).Where("name = ?", role.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
			}
		}
	}

	// 默认通用模板：单步，由 direct_manager 审批
	var tplCount int64
	if err := db.Model(&model.FormTemplate{}).Count(&tplCount).Error; err != nil {
		return err
	}
	if tplCount == 0 {
		var mgr model.Role
		if err := db.Where("name = ?", "direct_manager").First(&mgr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		chain, err := json.Marshal([]model.StepSpec{{Type: model.StepTypeRole, RoleID: mgr.ID}})
		if err != nil {
			return err
		}
		tpl := model.FormTemplate{
			Name:          "General Request",
			NameHebrew:    "בקשה כללית",
			Description:   "Default single-step request form",
			FormType:      "general",
			FieldsConfig:  datatypes.JSON([]byte(`{}`)),
			ApprovalChain: datatypes.JSON(chain),
			ApproveMode:   model.ApproveModeAll,
			RejectPolicy:  model.RejectPolicyTerminate,
			IsActive:      true,
		}
		if err := db.Create(&tpl).Error; err != nil {
			return fmt.Errorf("failed to seed default template: %w", err)
		}
		logger.Infof("Seeded default form template %q", tpl.FormType)
	}

	return nil
}
