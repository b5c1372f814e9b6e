// Package logging provides categorized logging for trainrx on top of zap.
// Each category is a named child of the process logger and can be switched
// off individually from the logging section of the config file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config loading
	CategoryEngine  Category = "engine"  // Rule evaluation and merging
	CategoryPreview Category = "preview" // Preview orchestration
	CategoryCatalog Category = "catalog" // YAML catalog loading and hot reload
	CategoryStore   Category = "store"   // SQLite repository
	CategoryServer  Category = "server"  // HTTP transport
	CategoryAudit   Category = "audit"   // Datalog trace queries
)

// AllCategories lists every category in declaration order.
var AllCategories = []Category{
	CategoryBoot, CategoryEngine, CategoryPreview, CategoryCatalog,
	CategoryStore, CategoryServer, CategoryAudit,
}

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Level      string
	Format     string // json or console
	File       string
	Categories map[string]bool
}

// Logger wraps a zap logger with printf-style helpers for one category.
// A Logger with no zap logger is a no-op.
type Logger struct {
	category Category
	z        *zap.Logger
	s        *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	base      *zap.Logger
	opts      Options
	optsMu    sync.RWMutex
)

// Build creates the process logger the way the CLI root does: a production
// config with the requested level, encoding and optional file sink.
func Build(o Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if o.Format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if o.Level != "" {
		lvl, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.Level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, o.File)
	}
	return cfg.Build()
}

// Initialize installs z as the parent of every category logger.
// Should be called once at startup, before the first Get.
func Initialize(z *zap.Logger, o Options) {
	optsMu.Lock()
	base = z
	opts = o
	optsMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	if z == nil {
		return
	}
	boot := Get(CategoryBoot)
	boot.Debug("logging initialized: level=%s format=%s file=%q", o.Level, o.Format, o.File)
	if len(o.Categories) > 0 {
		enabled := 0
		for _, on := range o.Categories {
			if on {
				enabled++
			}
		}
		boot.Debug("enabled categories: %d/%d", enabled, len(o.Categories))
	}
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories are on unless explicitly disabled.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if base == nil {
		return false
	}
	enabled, exists := opts.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is not initialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	optsMu.RLock()
	z := base.Named(string(category))
	optsMu.RUnlock()

	l := &Logger{category: category, z: z, s: z.Sugar()}
	loggers[category] = l
	return l
}

// Category returns the category l logs to.
func (l *Logger) Category() Category { return l.category }

// Zap exposes the underlying structured logger; it is never nil.
func (l *Logger) Zap() *zap.Logger {
	if l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.s == nil {
		return
	}
	l.s.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.s == nil {
		return
	}
	l.s.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.s == nil {
		return
	}
	l.s.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.s == nil {
		return
	}
	l.s.Errorf(format, args...)
}

// WithContext returns a logger that attaches ctx as structured fields.
func (l *Logger) WithContext(ctx map[string]interface{}) *Logger {
	if l.z == nil {
		return l
	}
	fields := make([]zap.Field, 0, len(ctx))
	for k, v := range ctx {
		fields = append(fields, zap.Any(k, v))
	}
	z := l.z.With(fields...)
	return &Logger{category: l.category, z: z, s: z.Sugar()}
}

// Sync flushes the process logger (call at shutdown).
func Sync() {
	optsMu.RLock()
	z := base
	optsMu.RUnlock()
	if z != nil {
		_ = z.Sync()
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// EngineDebug logs debug to the engine category
func EngineDebug(format string, args ...interface{}) {
	Get(CategoryEngine).Debug(format, args...)
}

// Preview logs to the preview category
func Preview(format string, args ...interface{}) {
	Get(CategoryPreview).Info(format, args...)
}

// PreviewDebug logs debug to the preview category
func PreviewDebug(format string, args ...interface{}) {
	Get(CategoryPreview).Debug(format, args...)
}

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Info(format, args...)
}

// CatalogWarn logs warning to the catalog category
func CatalogWarn(format string, args ...interface{}) {
	Get(CategoryCatalog).Warn(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Server logs to the server category
func Server(format string, args ...interface{}) {
	Get(CategoryServer).Info(format, args...)
}

// ServerError logs error to the server category
func ServerError(format string, args ...interface{}) {
	Get(CategoryServer).Error(format, args...)
}

// AuditDebug logs debug to the audit category
func AuditDebug(format string, args ...interface{}) {
	Get(CategoryAudit).Debug(format, args...)
}
