package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger は GORM のログを zap に流す
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(l *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		log:           l.Named("gorm"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.with(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.with(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.with(ctx).Sugar().Errorf(msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	log := l.with(ctx)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		//見つからないのは usecase 側で 404 にするのでログ不要
		if errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		log.Error("sql error", append(fields, zap.Error(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("slow sql", fields...)
	case l.level >= gormlogger.Info:
		log.Debug("sql", fields...)
	}
}

func (l *GormLogger) with(ctx context.Context) *zap.Logger {
	if id := RequestID(ctx); id != "" {
		return l.log.With(zap.String("request_id", id))
	}
	return l.log
}

// LOG_LEVEL から GORM 側のレベルを決める（debug のときだけ SQL を出す）
func GormLevel(level string) gormlogger.LogLevel {
	switch ParseLevel(level).String() {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	}
	return gormlogger.Warn
}
