package database

import (
	"fmt"
	"log"
	"medprep_backend/internal/config"
	"medprep_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Package{},
		&model.Purchase{},
		&model.Specialty{},
		&model.Topic{},
		&model.QuestionVariation{},
		&model.Alternative{},
		&model.Session{},
		&model.SessionQuestion{},
		&model.Answer{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认套餐（库为空时插入，价格单位为分）
	var count int64
	db.Model(&model.Package{}).Count(&count)
	if count == 0 {
		defaultPackages := []model.Package{
			{Name: "每日小测 x30", Kind: model.PackageControl, PriceCents: 4900, SessionQty: 30, TotalQuestions: 15, IsActive: true},
			{Name: "模块测试 x10", Kind: model.PackageExam, PriceCents: 9900, SessionQty: 10, TotalQuestions: 45, IsActive: true},
			{Name: "全真模拟 x3", Kind: model.PackageMockExam, PriceCents: 14900, SessionQty: 3, TotalQuestions: 180, IsActive: true},
		}
		for _, p := range defaultPackages {
			db.Create(&p)
		}
	}

	return db, nil
}
