// Package hooking delivers notifications from hookable objects, such as
// buffers, to the hooks registered on them.
package hooking

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// RemoveHook unregisters the first registration of the hook. It returns
	// false if the hook was never registered.
	RemoveHook(hook Hook) bool

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface. Hooks are invoked in registration order. The same
// hook may be registered more than once and is then invoked once per
// registration.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns a copy of the registered hooks.
func (h *HookableBase) Hooks() []Hook {
	hooks := make([]Hook, len(h.hookList))
	copy(hooks, h.hookList)

	return hooks
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	if hook == nil {
		panic("cannot accept a nil hook")
	}

	h.hookList = append(h.hookList, hook)
}

// RemoveHook removes the first registration of the hook.
func (h *HookableBase) RemoveHook(hook Hook) bool {
	for i, registered := range h.hookList {
		if registered == hook {
			h.hookList = append(h.hookList[:i:i], h.hookList[i+1:]...)
			return true
		}
	}

	return false
}

// ReplaceHooks drops all registrations and registers the given hooks instead.
func (h *HookableBase) ReplaceHooks(hooks []Hook) {
	h.hookList = make([]Hook, len(hooks))
	copy(h.hookList, hooks)
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
