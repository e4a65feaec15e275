package hooking

import (
	"fmt"
	"log"
)

// A LogHook prints the hook sites it is interested in to a logger.
type LogHook struct {
	*log.Logger

	positions map[*HookPos]bool
}

// NewLogHook creates a LogHook that writes to logger. If no position is
// given, every position is logged.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	h := &LogHook{
		Logger:    logger,
		positions: make(map[*HookPos]bool),
	}

	for _, p := range positions {
		h.positions[p] = true
	}

	return h
}

// Func logs the hook position and the item.
func (h *LogHook) Func(ctx HookCtx) {
	if len(h.positions) > 0 && !h.positions[ctx.Pos] {
		return
	}

	name := "?"
	if ctx.Pos != nil {
		name = ctx.Pos.Name
	}

	if s, ok := ctx.Item.(fmt.Stringer); ok {
		h.Printf("%s %s", name, s)
		return
	}

	h.Printf("%s %v", name, ctx.Item)
}
