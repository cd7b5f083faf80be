package olympe

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// MenuStatus is the in-game menu state machine. While the menu is shown,
// gameplay input is gated (see InputRouter) but rendering continues — the
// menu panel draws in Pass 2 over a still-live world.
type MenuStatus uint8

const (
	MenuHidden MenuStatus = iota
	MenuShown
	MenuClosing
)

// menuFadeDuration is the Closing fade length in seconds.
const menuFadeDuration = 0.25

// MenuSystem owns the menu state machine. EventMenuToggle flips
// Hidden↔Shown; Closing runs an alpha fade before landing in Hidden; an
// explicit quit emits a System-domain EventQuit for engine shutdown.
type MenuSystem struct {
	Events *EventQueue

	status MenuStatus
	alpha  float64
	fade   *gween.Tween
}

// NewMenuSystem creates the system over the shared queue.
func NewMenuSystem(q *EventQueue) *MenuSystem {
	return &MenuSystem{Events: q}
}

func (s *MenuSystem) Name() string { return "Menu" }

func (s *MenuSystem) Signature() Signature { return Signature{} }

// Status returns the current menu state.
func (s *MenuSystem) Status() MenuStatus { return s.status }

// Alpha returns the menu panel opacity in [0, 1].
func (s *MenuSystem) Alpha() float64 { return s.alpha }

// GatesGameplay reports whether gameplay input is currently suppressed.
func (s *MenuSystem) GatesGameplay() bool { return s.status == MenuShown }

// RequestQuit emits the shutdown event, drained next frame.
func (s *MenuSystem) RequestQuit() {
	s.Events.Emit(Event{Domain: DomainSystem, Type: EventQuit})
}

func (s *MenuSystem) Process(w *World, dt float64) {
	s.Events.Drain(DomainInput, func(ev Event) {
		if ev.Type != EventMenuToggle {
			return
		}
		switch s.status {
		case MenuHidden:
			s.status = MenuShown
			s.alpha = 1
			s.fade = nil
			s.Events.Emit(Event{Domain: DomainUI, Type: EventMenuShown})
		case MenuShown:
			s.status = MenuClosing
			s.fade = gween.New(1, 0, menuFadeDuration, ease.OutQuad)
		}
	})

	if s.status == MenuClosing && s.fade != nil {
		val, done := s.fade.Update(float32(dt))
		s.alpha = float64(val)
		if done {
			s.status = MenuHidden
			s.alpha = 0
			s.fade = nil
			s.Events.Emit(Event{Domain: DomainUI, Type: EventMenuHidden})
		}
	}
}
