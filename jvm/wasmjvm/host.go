package wasmjvm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/jvm"
)

type envKey struct{}

func withEnv(ctx context.Context, env *jvm.Env) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, envKey{}, env)
}

func envFrom(ctx context.Context) *jvm.Env {
	env, _ := ctx.Value(envKey{}).(*jvm.Env)
	return env
}

func readString(m api.Module, ptr, length uint32) (string, bool) {
	mem := m.Memory()
	if mem == nil {
		return "", false
	}
	buf, ok := mem.Read(ptr, length)
	if !ok {
		return "", false
	}
	return string(buf), true
}

func hostLog(ctx context.Context, m api.Module, level, ptr, length uint32) {
	env := envFrom(ctx)
	if env == nil {
		return
	}
	msg, ok := readString(m, ptr, length)
	if !ok {
		jvm.Logger().Warn("log message out of guest memory bounds", zap.Uint32("ptr", ptr), zap.Uint32("len", length))
		return
	}
	natives, err := env.Natives()
	if err != nil {
		jvm.Logger().Info(msg, zap.String("module", m.Name()))
		return
	}
	natives.Log(env, int(int32(level)), msg)
}

func hostExecute(ctx context.Context, m api.Module, ptr, length uint32) int64 {
	env := envFrom(ctx)
	if env == nil {
		return -1
	}
	query, ok := readString(m, ptr, length)
	if !ok {
		env.Throw(jvm.IllegalArgument("query out of guest memory bounds"))
		return -1
	}
	natives, err := env.Natives()
	if err != nil {
		env.Throw(jvm.ThrowableFor(err))
		return -1
	}

	rs, err := natives.Execute(env, query)
	if err != nil {
		env.Throw(jvm.ThrowableFor(err))
		return -1
	}

	var rows int64
	for {
		more, err := rs.Next(env)
		if err != nil {
			_ = rs.Close(env)
			env.Throw(jvm.ThrowableFor(err))
			return -1
		}
		if !more {
			break
		}
		rows++
	}
	if n := rs.RowsAffected(); n > rows {
		rows = n
	}
	if err := rs.Close(env); err != nil {
		env.Throw(jvm.ThrowableFor(err))
		return -1
	}
	return rows
}
