package core

import "context"

type connKey struct{}

// conn is what a component instance was mounted with.
type conn struct {
	socket  *Socket
	session Session
	params  Params
}

// BuildContext returns ctx carrying the socket, session and params of one
// component instance. Every callback of that instance receives it. socket
// is nil during the initial HTTP render.
func BuildContext(ctx context.Context, socket *Socket, session Session, params Params) context.Context {
	return context.WithValue(ctx, connKey{}, &conn{socket: socket, session: session, params: params})
}

func connFrom(ctx context.Context) *conn {
	if c, ok := ctx.Value(connKey{}).(*conn); ok {
		return c
	}
	return &conn{}
}

// SocketFromContext returns the connection's socket, or nil.
func SocketFromContext(ctx context.Context) *Socket { return connFrom(ctx).socket }

// SessionFromContext returns the mount session, or nil.
func SessionFromContext(ctx context.Context) Session { return connFrom(ctx).session }

// ParamsFromContext returns the mount params, or nil.
func ParamsFromContext(ctx context.Context) Params { return connFrom(ctx).params }
