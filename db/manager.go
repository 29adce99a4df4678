package db

import (
	"fmt"

	"socialfeed/config"
	"socialfeed/logger"
	"socialfeed/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

// Open открывает БД для key-value хранилища кеша: postgres с репликами или sqlite
func Open(conf *config.ConfigSchema) (*gorm.DB, error) {
	if conf == nil {
		return nil, fmt.Errorf("AppConfig is not loaded")
	}

	var dialector gorm.Dialector
	replicas := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	switch conf.Databases.Driver {
	case "postgres":
		if conf.Databases.Master.Host == "" {
			return nil, fmt.Errorf("master database configuration is missing")
		}
		dialector = postgres.Open(dsnFromConfig(conf.Databases.Master))
		for _, r := range conf.Databases.Replicas {
			replicas = append(replicas, postgres.Open(dsnFromConfig(r)))
		}
	case "sqlite":
		dialector = sqlite.Open(conf.Databases.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Databases.Driver)
	}

	orm, err := gorm.Open(dialector, &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if len(replicas) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
	}

	if err := Migrate(orm); err != nil {
		return nil, err
	}
	logger.Log.Info("database connected",
		zap.String("driver", conf.Databases.Driver),
		zap.Int("replicas", len(replicas)))
	return orm, nil
}

func Migrate(orm *gorm.DB) error {
	return orm.AutoMigrate(&models.KVEntry{})
}

func ConnectDB(conf *config.ConfigSchema) error {
	if ORM != nil {
		return nil
	}
	orm, err := Open(conf)
	if err != nil {
		return err
	}
	ORM = orm
	return nil
}
