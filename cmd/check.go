package sqlpoolcmd

import (
	"context"
	"fmt"
	"os"

	"gfx.cafe/gfx/sqlpool/lib/metrics"
)

func cmdCheck(fl Flags) (int, error) {
	ctx := context.Background()
	if timeout := fl.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s, err := newStack(ctx, fl)
	if err != nil {
		return 1, err
	}
	defer s.shutdown()

	if err = s.manager.Start(ctx); err != nil {
		return 1, err
	}

	conn, err := s.manager.GetConnection(ctx)
	if err != nil {
		return 1, err
	}
	err = conn.PingContext(ctx)
	s.manager.CloseConnection(conn)
	if err != nil {
		return 1, fmt.Errorf("ping failed: %w", err)
	}

	var m metrics.Pool
	s.provider.Pool().ReadMetrics(&m)
	_, _ = fmt.Fprintf(os.Stdout, "%s database reachable\n%s\n", s.manager.DatabaseType(), m.String())
	return 0, nil
}
