package models

import (
	"log"
	"os"
	"path/filepath"

	"github.com/GrainArc/GeoGlobe/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// InitDB 初始化主数据库，按配置选择sqlite或postgres
func InitDB() {
	var err error
	switch config.DBType {
	case "postgres":
		DB, err = gorm.Open(postgres.Open(config.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	default:
		// 确保sqlite数据库目录存在
		if mkErr := os.MkdirAll(filepath.Dir(config.SqlitePath), os.ModePerm); mkErr != nil {
			log.Fatalf("Failed to create database directory: %v", mkErr)
		}
		DB, err = gorm.Open(sqlite.Open(config.SqlitePath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 设置命名策略
	DB.NamingStrategy = schema.NamingStrategy{
		SingularTable: true,
	}

	// 批量迁移所有表
	if err := MigrateAllTables(DB); err != nil {
		log.Printf("Failed to migrate tables: %v", err)
	}
}

// MigrateAllTables 批量迁移所有表
func MigrateAllTables(db *gorm.DB) error {
	models := []interface{}{
		&Shapefile{},
		&Geometry{},
	}

	return db.AutoMigrate(models...)
}

func GetDB() *gorm.DB {
	return DB
}
