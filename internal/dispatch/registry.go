package dispatch

import (
	"fmt"
	"slices"
	"sort"

	"github.com/example/sscs-hearings-service/internal/domain"
)

// Entry — зарегистрированный обработчик с его корзиной.
type Entry struct {
	Handler  Handler
	Priority Priority
	seq      int
}

type registerOptions struct {
	allowDuplicate bool
}

type RegisterOption func(*registerOptions)

// AllowDuplicate разрешает повторную регистрацию с той же (корзина, имя).
func AllowDuplicate() RegisterOption {
	return func(o *registerOptions) { o.allowDuplicate = true }
}

// Registry хранит обработчики в порядке регистрации. Заполняется при старте
// процесса и дальше только читается.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register добавляет обработчик. Пара (корзина, имя) служит сигнатурой
// предиката: повтор без AllowDuplicate — ошибка конфигурации.
func (r *Registry) Register(h Handler, p Priority, opts ...RegisterOption) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	if p < Early || p > Late {
		return fmt.Errorf("register %s: unknown priority %d", h.Name(), int(p))
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.allowDuplicate {
		for _, e := range r.entries {
			if e.Priority == p && e.Handler.Name() == h.Name() {
				return fmt.Errorf("%w: %s in %s bucket", domain.ErrDuplicateHandler, h.Name(), p)
			}
		}
	}
	r.entries = append(r.entries, Entry{Handler: h, Priority: p, seq: len(r.entries)})
	return nil
}

// MustRegister — Register для кода старта процесса.
func (r *Registry) MustRegister(h Handler, p Priority, opts ...RegisterOption) {
	if err := r.Register(h, p, opts...); err != nil {
		panic(err)
	}
}

// HandlersFor возвращает кандидатов для (фаза, тип события), упорядоченных
// по корзине, внутри корзины по порядку регистрации.
func (r *Registry) HandlersFor(phase domain.Phase, eventType domain.EventType) []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if sel, ok := e.Handler.(Selector); ok {
			if !slices.Contains(sel.Phases(), phase) || !slices.Contains(sel.EventTypes(), eventType) {
				continue
			}
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (r *Registry) Len() int { return len(r.entries) }
