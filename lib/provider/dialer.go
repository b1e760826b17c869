package provider

import (
	"context"
	"database/sql"

	"gfx.cafe/gfx/sqlpool/lib/pool"
)

// DBDialer opens physical connections through a *sql.DB. The DB must have idle pooling disabled
// so closing a connection closes it for real.
type DBDialer struct {
	DB *sql.DB
}

func (T DBDialer) Dial(ctx context.Context) (pool.Conn, error) {
	c, err := T.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var _ pool.Dialer = DBDialer{}
