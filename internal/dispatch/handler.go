// Package dispatch маршрутизирует события жизненного цикла дела по статически
// зарегистрированным обработчикам в порядке приоритетов.
package dispatch

import (
	"context"
	"fmt"
	"slices"

	"github.com/example/sscs-hearings-service/internal/domain"
	"github.com/example/sscs-hearings-service/internal/emit"
)

// Priority — корзина приоритета. Все Early выполняются до Default, Default до Late.
type Priority int

const (
	Early Priority = iota
	Default
	Late
)

var priorities = []Priority{Early, Default, Late}

func (p Priority) String() string {
	switch p {
	case Early:
		return "early"
	case Default:
		return "default"
	case Late:
		return "late"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// FeatureSet — явные флаги функциональности вместо глобального состояния.
type FeatureSet struct {
	ListAssistEnabled bool
	// ListAssistRegions ограничивает listAssist регионами; пусто значит все регионы.
	ListAssistRegions []string
	// DeferredEmit откладывает публикацию запросов до Outcome.Commit.
	DeferredEmit bool
}

// ListAssistFor сообщает, ведёт ли внешняя система расписание для региона.
func (f FeatureSet) ListAssistFor(region string) bool {
	if !f.ListAssistEnabled {
		return false
	}
	if len(f.ListAssistRegions) == 0 {
		return true
	}
	return slices.Contains(f.ListAssistRegions, region)
}

// Env — зависимости, доступные обработчику в пределах одной диспетчеризации.
type Env struct {
	Features FeatureSet
	Emitter  emit.Emitter
}

// Result — итог работы обработчика. Ошибки и предупреждения накапливаются;
// Abort немедленно завершает диспетчеризацию.
type Result struct {
	Case     domain.CaseSnapshot
	Errors   []string
	Warnings []string
	Abort    bool
}

// Handler — стратегия без состояния, участвующая в обработке события.
// CanHandle обязан быть чистым; «не моё событие» выражается только через него.
type Handler interface {
	Name() string
	CanHandle(ev domain.Event, fs FeatureSet) bool
	Handle(ctx context.Context, ev domain.Event, env Env) (Result, error)
}

// Selector — необязательная подсказка реестру, на какие фазы и типы событий
// вообще может откликнуться обработчик.
type Selector interface {
	Phases() []domain.Phase
	EventTypes() []domain.EventType
}

// Guard вызывается первой строкой Handle: вызов мимо CanHandle — ошибка программы.
func Guard(h Handler, ev domain.Event, fs FeatureSet) error {
	if !h.CanHandle(ev, fs) {
		return fmt.Errorf("%w: %s cannot handle %s/%s", domain.ErrIllegalDispatch, h.Name(), ev.Phase, ev.Type)
	}
	return nil
}

// Unchanged — результат без изменений и сообщений.
func Unchanged(ev domain.Event) Result {
	return Result{Case: ev.Case}
}
