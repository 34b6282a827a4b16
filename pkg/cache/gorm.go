package cache

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type (
	entry struct {
		Key       string `gorm:"column:cache_key;primaryKey"`
		Value     []byte
		UpdatedAt time.Time
	}
	entryTag struct {
		Tag string `gorm:"primaryKey"`
		Key string `gorm:"column:cache_key;primaryKey"`
	}
)

func (entry) TableName() string    { return "aop_cache_entries" }
func (entryTag) TableName() string { return "aop_cache_tags" }

var _ Cache = (*Gorm)(nil)

// Gorm is a Cache stored in a SQL database.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm opens the sqlite database dsn.
func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", dsn, err)
	}
	return NewGorm(db)
}

// NewGorm uses db, creating the cache tables when missing.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&entry{}, &entryTag{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Has(key string) (bool, error) {
	var n int64
	err := g.db.Model(&entry{}).Where("cache_key = ?", key).Count(&n).Error
	return n > 0, err
}

func (g *Gorm) Get(key string) ([]byte, error) {
	var e entry
	err := g.db.Where("cache_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

func (g *Gorm) Set(key string, value []byte, tags ...string) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&entry{Key: key, Value: value}).Error
		if err != nil {
			return err
		}
		for _, tag := range tags {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&entryTag{Tag: tag, Key: key}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Gorm) FlushByTag(tag string) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		keys := tx.Model(&entryTag{}).Select("cache_key").Where("tag = ?", tag)
		if err := tx.Where("cache_key IN (?)", keys).Delete(&entry{}).Error; err != nil {
			return err
		}
		return tx.Where("tag = ?", tag).Delete(&entryTag{}).Error
	})
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
