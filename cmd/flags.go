package sqlpoolcmd

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags wraps a FlagSet and ignores lookup errors. Every flag a command reads is registered
// by that command, so a lookup error is a programming mistake.
type Flags struct {
	*pflag.FlagSet
}

func (T Flags) String(name string) string {
	v, _ := T.FlagSet.GetString(name)
	return v
}

func (T Flags) Bool(name string) bool {
	v, _ := T.FlagSet.GetBool(name)
	return v
}

func (T Flags) Duration(name string) time.Duration {
	v, _ := T.FlagSet.GetDuration(name)
	return v
}
