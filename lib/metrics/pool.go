package metrics

import (
	"fmt"
	"strings"
	"time"
)

type Pool struct {
	Name string

	Size           int
	MinConnections int
	MaxConnections int
	CheckedOut     int
	Waiting        int

	Conns []Conn
}

func (T *Pool) Clear() {
	T.Conns = T.Conns[:0]
}

func (T *Pool) CountState(state ConnState) int {
	var n int
	for i := range T.Conns {
		if T.Conns[i].State == state {
			n++
		}
	}
	return n
}

func (T *Pool) String() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(
		&b,
		"%s: %d/%d connections (min %d), %d checked out, %d waiting",
		T.Name,
		T.Size,
		T.MaxConnections,
		T.MinConnections,
		T.CheckedOut,
		T.Waiting,
	)
	for i := range T.Conns {
		c := &T.Conns[i]
		_, _ = fmt.Fprintf(&b, "\n  [%d] %s %s for %s", c.Slot, c.ID, c.State, c.Time.Sub(c.Since).Round(time.Millisecond))
	}
	return b.String()
}
