// Package log настраивает общий структурированный логгер сервиса.
package log

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config задаёт параметры глобального логгера.
type Config struct {
	Level   string    // "debug", "info", ...
	Output  io.Writer // по умолчанию os.Stdout
	Service string
}

const defaultService = "sscs-hearings"

var (
	mu   sync.RWMutex
	base = newBase(os.Stdout, defaultService)
)

func newBase(w io.Writer, service string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// Configure пересобирает глобальный логгер. Логгеры, полученные через Base и
// WithComponent до вызова, продолжают писать в прежний писатель, поэтому
// компоненты берут логгер при создании, а не в переменных пакета.
func Configure(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	writer := cfg.Output
	if writer == nil {
		writer = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = defaultService
	}
	lvl := cfg.Level
	if lvl == "" {
		lvl = os.Getenv("LOG_LEVEL")
	}
	level := zerolog.InfoLevel
	if lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)

	mu.Lock()
	base = newBase(writer, service)
	mu.Unlock()
}

func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent возвращает дочерний логгер с полем component.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext дополняет логгер идентификатором запроса из ctx, если он есть.
func WithContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return l
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		return l.With().Str(FieldRequestID, rid).Logger()
	}
	return l
}
