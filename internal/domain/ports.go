package domain

import (
	"context"
	"errors"
)

// CaseStore — порт хранилища дел с оптимистичной блокировкой по версии.
type CaseStore interface {
	Get(ctx context.Context, caseID string) (CaseSnapshot, int64, error)
	// CompareAndSwap заменяет документ целиком, только если текущая версия равна expected.
	CompareAndSwap(ctx context.Context, caseID string, expected int64, next CaseSnapshot) (bool, int64, error)
}

// HearingPublisher — порт исходящего канала запросов на слушания.
type HearingPublisher interface {
	Publish(ctx context.Context, req HearingRequest) error
}

// MessageSubscriber — порт подписчика на входящие сообщения о статусе слушаний.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

// CaseSeeder заводит новое дело с версией 1. Нужен загрузчику и тестам.
type CaseSeeder interface {
	Insert(ctx context.Context, c CaseSnapshot) (int64, error)
}

// Alerter получает статусы, требующие ручного разбора.
type Alerter interface {
	Alert(ctx context.Context, msg HearingStatusMessage, reason string)
}

// Общие доменные ошибки
var (
	ErrCaseNotFound          = notFoundError("case not found")
	ErrCaseExists            = errors.New("case already exists")
	ErrValidation            = validationError("invalid data")
	ErrInvalidEvent          = errors.New("invalid event")
	ErrIllegalDispatch       = errors.New("illegal dispatch")
	ErrDuplicateHandler      = errors.New("duplicate handler registration")
	ErrVersionConflict       = errors.New("case version conflict")
	ErrEventRejected         = errors.New("event rejected by validation")
	ErrSyncConflictExhausted = errors.New("hearing sync: version conflicts exhausted")
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrHearingException      = errors.New("hearing in exception state")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

// IsRetryable сообщает, стоит ли каналу доставить сообщение повторно.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSyncConflictExhausted) || errors.Is(err, ErrUpstreamUnavailable)
}
