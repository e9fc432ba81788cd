package hooking

import (
	"fmt"
	"log"
)

// LogHook writes one line per hook invocation.
type LogHook struct {
	*log.Logger
}

// NewLogHook creates a LogHook that writes to the given logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func logs the position, domain, and item of the invocation.
func (h *LogHook) Func(ctx HookCtx) {
	domain := "-"
	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		domain = named.Name()
	}

	line := fmt.Sprintf("%s %s", ctx.Pos.Name, domain)

	if ctx.Item != nil {
		line += fmt.Sprintf(" item=%v", ctx.Item)
	}

	if ctx.Detail != nil {
		line += fmt.Sprintf(" %v", ctx.Detail)
	}

	h.Print(line)
}
