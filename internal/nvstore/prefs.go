package nvstore

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultNamespace groups the records written by this module.
const DefaultNamespace = "AC_CONFG"

// Preference is one key-addressed value.
type Preference struct {
	Namespace string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey;column:pref_key"`
	Value     []byte
	UpdatedAt time.Time
}

// Prefs is a key-addressed store in SQLite. Selector offsets are ignored.
type Prefs struct {
	db        *gorm.DB
	namespace string
	logger    *zap.Logger
}

// OpenPrefs opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a throwaway database.
func OpenPrefs(path, namespace string, logger *zap.Logger) (*Prefs, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Backend: "prefs", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	if path == ":memory:" {
		// each pooled connection would otherwise see its own database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, &StorageError{Op: "open", Backend: "prefs", Err: fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)}
	}

	logger.Debug("opened preferences", zap.String("path", path), zap.String("namespace", namespace))
	return &Prefs{db: db, namespace: namespace, logger: logger}, nil
}

// Name implements Store.
func (p *Prefs) Name() string { return "prefs" }

// Load returns the value stored under sel.Key. A positive sel.Length
// returns only that prefix, which lets framed reads fetch the header
// first.
func (p *Prefs) Load(sel Selector) ([]byte, error) {
	if sel.Key == "" {
		return nil, &StorageError{Op: "load", Backend: p.Name(), Selector: sel, Err: ErrOutOfRange}
	}

	var pref Preference
	err := p.db.Where("namespace = ? AND pref_key = ?", p.namespace, sel.Key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &StorageError{Op: "load", Backend: p.Name(), Selector: sel, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "load", Backend: p.Name(), Selector: sel, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	if sel.Length > 0 && len(pref.Value) > sel.Length {
		return pref.Value[:sel.Length], nil
	}
	return pref.Value, nil
}

// Save stores data whole under sel.Key, replacing any previous value.
func (p *Prefs) Save(sel Selector, data []byte) error {
	if sel.Key == "" {
		return &StorageError{Op: "save", Backend: p.Name(), Selector: sel, Err: ErrOutOfRange}
	}

	value := make([]byte, len(data))
	copy(value, data)
	pref := Preference{Namespace: p.namespace, Key: sel.Key, Value: value}

	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return &StorageError{Op: "save", Backend: p.Name(), Selector: sel, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	p.logger.Debug("preference write", zap.String("key", sel.Key), zap.Int("bytes", len(data)))
	return nil
}

// Remove deletes the value stored under key.
func (p *Prefs) Remove(key string) error {
	err := p.db.Where("namespace = ? AND pref_key = ?", p.namespace, key).Delete(&Preference{}).Error
	if err != nil {
		return &StorageError{Op: "remove", Backend: p.Name(), Selector: Selector{Key: key}, Err: err}
	}
	return nil
}

// Close implements Store.
func (p *Prefs) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
