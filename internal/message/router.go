package message

import (
	"context"

	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, env *Envelope) error

// Router dispatches raw transport messages to handlers by envelope type.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{handlers: make(map[string]HandlerFunc), logger: logger}
}

func (r *Router) Handle(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// HandleMessage has the signature expected by transport consumers.
func (r *Router) HandleMessage(ctx context.Context, key, value []byte) error {
	env, err := Decode(value)
	if err != nil {
		return Fatal(err)
	}
	return r.Route(ctx, env)
}

func (r *Router) Route(ctx context.Context, env *Envelope) error {
	fn, ok := r.handlers[env.Type]
	if !ok {
		r.logger.Debug("no handler for message type", zap.String("type", env.Type), zap.String("id", env.ID))
		return nil
	}
	return fn(ctx, env)
}
