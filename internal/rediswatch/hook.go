package rediswatch

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/hotkeyd/hotkeyd/internal/counter"
)

// Hook counts the keys of watched commands as they pass through a go-redis
// client. It never alters or fails the command.
type Hook struct {
	c       counter.Interface
	watched commandSet
}

var _ redis.Hook = (*Hook)(nil)

// NewHook builds a hook feeding c. With no commands given, DefaultCommands
// are watched.
func NewHook(c counter.Interface, commands ...string) *Hook {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	return &Hook{c: c, watched: newCommandSet(commands)}
}

func (h *Hook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *Hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.observe(cmd)
		return next(ctx, cmd)
	}
}

func (h *Hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			h.observe(cmd)
		}
		return next(ctx, cmds)
	}
}

// observe counts before the command runs; a call that later fails still
// visited the key.
func (h *Hook) observe(cmd redis.Cmder) {
	name := cmd.Name()
	if !h.watched[name] {
		return
	}
	args := cmd.Args()
	if len(args) < 2 {
		return
	}
	if multiKey[name] {
		for _, a := range args[1:] {
			if k, ok := argKey(a); ok {
				h.c.Incr(k)
			}
		}
		return
	}
	if k, ok := argKey(args[1]); ok {
		h.c.Incr(k)
	}
}
