package olympe

import (
	"sync"

	input "github.com/quasilyte/ebitengine-input"
)

// Gameplay and UI actions routed per player.
const (
	ActionMoveUp input.Action = iota
	ActionMoveDown
	ActionMoveLeft
	ActionMoveRight
	ActionPrimary
	ActionSecondary
	ActionMenu
	ActionUIUp
	ActionUIDown
	ActionUIConfirm
)

// KeyboardDevice is the binding value for the keyboard player slot.
const KeyboardDevice = -1

// maxPlayers is the hard cap on simultaneously bound players.
const maxPlayers = 8

// keyboardKeymap binds the keyboard player: WASD plus arrows.
func keyboardKeymap() input.Keymap {
	return input.Keymap{
		ActionMoveUp:    {input.KeyW, input.KeyUp},
		ActionMoveDown:  {input.KeyS, input.KeyDown},
		ActionMoveLeft:  {input.KeyA, input.KeyLeft},
		ActionMoveRight: {input.KeyD, input.KeyRight},
		ActionPrimary:   {input.KeySpace},
		ActionSecondary: {input.KeyE},
		ActionMenu:      {input.KeyEscape},
		ActionUIUp:      {input.KeyUp},
		ActionUIDown:    {input.KeyDown},
		ActionUIConfirm: {input.KeyEnter},
	}
}

// gamepadKeymap binds a controller player: d-pad plus left stick.
func gamepadKeymap() input.Keymap {
	return input.Keymap{
		ActionMoveUp:    {input.KeyGamepadUp, input.KeyGamepadLStickUp},
		ActionMoveDown:  {input.KeyGamepadDown, input.KeyGamepadLStickDown},
		ActionMoveLeft:  {input.KeyGamepadLeft, input.KeyGamepadLStickLeft},
		ActionMoveRight: {input.KeyGamepadRight, input.KeyGamepadLStickRight},
		ActionPrimary:   {input.KeyGamepadA},
		ActionSecondary: {input.KeyGamepadX},
		ActionMenu:      {input.KeyGamepadStart},
		ActionUIUp:      {input.KeyGamepadUp},
		ActionUIDown:    {input.KeyGamepadDown},
		ActionUIConfirm: {input.KeyGamepadA},
	}
}

// playerSlot is one bound player: its device and action handler.
type playerSlot struct {
	bound     bool
	device    int // KeyboardDevice or a gamepad index
	handler   *input.Handler
	connected bool
}

// InputRouter captures device state and routes it to per-player action
// handlers. Binding is an explicit playerIndex → device mapping; hot-plug
// re-binds controllers on reconnect. The mutex guards the binding table
// between platform callbacks and the next system tick — the only lock in
// the core.
type InputRouter struct {
	Events *EventQueue

	mu    sync.Mutex
	sys   input.System
	slots [maxPlayers]playerSlot
}

// NewInputRouter creates the router over the shared queue.
func NewInputRouter(q *EventQueue) *InputRouter {
	r := &InputRouter{Events: q}
	r.sys.Init(input.SystemConfig{DevicesEnabled: input.AnyDevice})
	return r
}

// BindPlayer maps playerIndex to a device: KeyboardDevice or a gamepad
// index. Rebinding replaces the previous handler.
func (r *InputRouter) BindPlayer(playerIndex, device int) {
	if playerIndex < 0 || playerIndex >= maxPlayers {
		logFor("input").Warnf("player index %d out of range", playerIndex)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := &r.slots[playerIndex]
	slot.bound = true
	slot.device = device
	if device == KeyboardDevice {
		slot.handler = r.sys.NewHandler(0, keyboardKeymap())
		slot.connected = true
	} else {
		slot.handler = r.sys.NewHandler(uint8(device), gamepadKeymap())
		slot.connected = slot.handler.GamepadConnected()
	}
	logFor("input").Infof("player %d bound to device %d", playerIndex, device)
}

// UnbindPlayer releases the player slot.
func (r *InputRouter) UnbindPlayer(playerIndex int) {
	if playerIndex < 0 || playerIndex >= maxPlayers {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[playerIndex] = playerSlot{}
}

// Bound reports whether the player slot has a device.
func (r *InputRouter) Bound(playerIndex int) bool {
	if playerIndex < 0 || playerIndex >= maxPlayers {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[playerIndex].bound
}

// PlayerCount returns the number of bound players.
func (r *InputRouter) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.slots {
		if r.slots[i].bound {
			n++
		}
	}
	return n
}

// NextFreeIndex returns the lowest unbound player slot, or -1.
func (r *InputRouter) NextFreeIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if !r.slots[i].bound {
			return i
		}
	}
	return -1
}

// Poll advances device state once per frame: the backing input system, and
// hot-plug edges (emitting PlayerJoined/PlayerLeft on connect state flips).
func (r *InputRouter) Poll() {
	r.sys.Update()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		slot := &r.slots[i]
		if !slot.bound || slot.device == KeyboardDevice {
			continue
		}
		now := slot.handler.GamepadConnected()
		if now == slot.connected {
			continue
		}
		slot.connected = now
		typ := EventPlayerLeft
		if now {
			typ = EventPlayerJoined
		}
		r.Events.Emit(Event{
			Domain:  DomainSystem,
			Type:    typ,
			Payload: PlayerPayload{PlayerIndex: i, ControllerID: slot.device},
		})
	}
}

// handlerFor returns the action handler for a player, nil when unbound.
func (r *InputRouter) handlerFor(playerIndex int) *input.Handler {
	if playerIndex < 0 || playerIndex >= maxPlayers {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.slots[playerIndex].bound {
		return nil
	}
	return r.slots[playerIndex].handler
}

// PlayerControlSystem translates raw device state into per-player gameplay
// intent: PlayerController.JoyDir and action flags, and this frame's
// Movement for the bound entity. While the in-game menu is shown, gameplay
// actions are suppressed and movement cleared, but menu toggling and UI
// navigation still pass.
type PlayerControlSystem struct {
	Router *InputRouter
	Menu   *MenuSystem
}

// NewPlayerControlSystem creates the system.
func NewPlayerControlSystem(router *InputRouter, menu *MenuSystem) *PlayerControlSystem {
	return &PlayerControlSystem{Router: router, Menu: menu}
}

func (s *PlayerControlSystem) Name() string { return "PlayerControl" }

func (s *PlayerControlSystem) Signature() Signature {
	return MakeSignature(KindPlayerBinding, KindPlayerController)
}

func (s *PlayerControlSystem) Process(w *World, dt float64) {
	gated := s.Menu != nil && s.Menu.GatesGameplay()

	for _, e := range w.Matched(s) {
		binding := w.Components.PlayerBinding.Get(e)
		pc := w.Components.PlayerControl.Get(e)
		h := s.Router.handlerFor(binding.PlayerIndex)
		if h == nil {
			continue
		}

		// Menu toggle and UI navigation are never gated.
		if h.ActionIsJustPressed(ActionMenu) {
			s.Router.Events.Emit(Event{Domain: DomainInput, Type: EventMenuToggle, Sender: e})
		}
		if gated {
			if h.ActionIsJustPressed(ActionUIUp) || h.ActionIsJustPressed(ActionUIDown) {
				s.Router.Events.Emit(Event{Domain: DomainInput, Type: EventUINavigate, Sender: e})
			}
			if h.ActionIsJustPressed(ActionUIConfirm) {
				s.Router.Events.Emit(Event{Domain: DomainInput, Type: EventUIConfirm, Sender: e})
			}
			pc.JoyDir = Vec2{}
			pc.Actions = 0
			s.applyMovement(w, e, Vec2{}, dt)
			continue
		}

		var dir Vec2
		if h.ActionIsPressed(ActionMoveLeft) {
			dir.X -= 1
		}
		if h.ActionIsPressed(ActionMoveRight) {
			dir.X += 1
		}
		if h.ActionIsPressed(ActionMoveUp) {
			dir.Y -= 1
		}
		if h.ActionIsPressed(ActionMoveDown) {
			dir.Y += 1
		}
		dir = dir.Normalized()

		pc.JoyDir = dir
		pc.Actions = 0
		if h.ActionIsPressed(ActionPrimary) {
			pc.Actions |= ActionFlagPrimary
		}
		if h.ActionIsPressed(ActionSecondary) {
			pc.Actions |= ActionFlagSecondary
		}

		if ctrl := w.Components.Controller.Get(e); ctrl != nil {
			ctrl.Connected = true
			ctrl.Axes = dir
			ctrl.Buttons = uint32(pc.Actions)
		}

		s.applyMovement(w, e, dir, dt)
	}
}

// applyMovement writes this frame's displacement from the stick direction.
func (s *PlayerControlSystem) applyMovement(w *World, e Entity, dir Vec2, dt float64) {
	mov := w.Components.Movement.Get(e)
	if mov == nil {
		return
	}
	speed := defaultAISpeed
	if body := w.Components.PhysicsBody.Get(e); body != nil && body.Speed > 0 {
		speed = body.Speed
	}
	mov.DX = dir.X * speed * dt
	mov.DY = dir.Y * speed * dt
}
