package sqlpoolcmd

import (
	"context"

	"gfx.cafe/util/go/gotel"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gfx.cafe/gfx/sqlpool/lib/config"
	"gfx.cafe/gfx/sqlpool/lib/dbmanager"
	"gfx.cafe/gfx/sqlpool/lib/profile"
	"gfx.cafe/gfx/sqlpool/lib/provider"
	"gfx.cafe/gfx/sqlpool/lib/tracing"
)

// stack is everything a command builds from a config file.
type stack struct {
	config   config.Config
	log      *zap.Logger
	provider *provider.Provider
	manager  *dbmanager.Manager

	shutdownTracing gotel.ShutdownFunc
}

func newStack(ctx context.Context, fl Flags) (*stack, error) {
	log, err := newLogger(fl)
	if err != nil {
		return nil, err
	}

	conf, err := config.Load(fl.String("config"))
	if err != nil {
		return nil, err
	}

	shutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName:      conf.Tracing.ServiceName,
		ServiceNamespace: conf.Tracing.ServiceNamespace,
		Endpoint:         conf.Tracing.Endpoint,
		SampleRate:       conf.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}

	p := provider.NewProvider(conf.Provider(log))
	m := dbmanager.NewManager(p, conf.Manager(log, profile.NewProfiler(nil)))

	return &stack{
		config:          conf,
		log:             log,
		provider:        p,
		manager:         m,
		shutdownTracing: shutdown,
	}, nil
}

// shutdown closes the stack and logs anything that went wrong on the way down.
func (T *stack) shutdown() {
	if err := T.Close(); err != nil {
		T.log.Warn("error while shutting down", zap.Error(err))
	}
}

func (T *stack) Close() error {
	err := T.manager.Destroy()
	if T.shutdownTracing != nil {
		err = multierr.Append(err, T.shutdownTracing(context.Background()))
	}
	_ = T.log.Sync()
	return err
}
