package database

import (
	"fmt"
	"learning_platform_backend/internal/config"
	"learning_platform_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.Student{},
		&model.Admin{},
		&model.Subject{},
		&model.Topic{},
		&model.TopicContent{},
		&model.Comment{},
		&model.Reaction{},
		&model.Community{},
		&model.CommunityMember{},
		&model.CommunityMessage{},
		&model.ChatMessage{},
		&model.Exam{},
		&model.RecordExam{},
		&model.Quiz{},
		&model.LibraryBook{},
		&model.BookLike{},
		&model.HomeBanner{},
		&model.StudentTopicProgress{},
		&model.Wallet{},
		&model.WalletTransaction{},
		&model.Payment{},
	}
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release builds only migrate when asked to
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
