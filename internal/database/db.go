package database

import (
	"time"

	"dinein-backend/internal/config"
	"dinein-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init connects to Postgres, migrates the schema and seeds the dining room.
func Init(cfg *config.Config, log *logrus.Logger) error {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	if cfg.SeedTables {
		created, err := SeedTables(db)
		if err != nil {
			return err
		}
		if created > 0 {
			log.WithField("count", created).Info("Seeded dining tables")
		}
	}

	DB = db
	log.Info("Database connection ready, migration finished")
	return nil
}

// Migrate creates or updates every table. The partial unique indexes on
// bills(table_id) and orders(table_id) are declared on the models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Table{},
		&models.Dish{},
		&models.FlavorRound{},
		&models.FlavorOption{},
		&models.Bill{},
		&models.Order{},
		&models.OrderItem{},
		&models.Staff{},
		&models.AuditLog{},
	)
}

// DefaultTables is the dining room layout used when the tables table is empty.
var DefaultTables = []models.Table{
	{ID: 1, Type: "hall", Capacity: 4},
	{ID: 2, Type: "hall", Capacity: 4},
	{ID: 3, Type: "hall", Capacity: 4},
	{ID: 4, Type: "hall", Capacity: 4},
	{ID: 5, Type: "hall", Capacity: 4},
	{ID: 6, Type: "hall", Capacity: 2},
	{ID: 7, Type: "booth", Capacity: 6},
	{ID: 8, Type: "booth", Capacity: 6},
	{ID: 9, Type: "private_room", Capacity: 10},
	{ID: 10, Type: "private_room", Capacity: 12},
}

// SeedTables inserts DefaultTables, all free, if no table exists yet.
func SeedTables(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.Table{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tables := make([]models.Table, len(DefaultTables))
	copy(tables, DefaultTables)
	for i := range tables {
		tables[i].Status = models.TableFree
	}
	if err := db.Create(&tables).Error; err != nil {
		return 0, err
	}
	return len(tables), nil
}
