package sqlpoolcmd

import (
	"github.com/spf13/pflag"
)

func init() {
	RegisterCommand(Command{
		Name:  "run",
		Short: "Starts the pool and keeps it maintained until interrupted",
		Long: `
Starts the pool described by the config file, fills it to min_connections and
runs the housekeeper until SIGINT or SIGTERM. When metrics_address is set the
pool metrics are served in the prometheus format on /metrics.`,
		Func: cmdRun,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("run", pflag.ExitOnError)
			fs.StringP("config", "c", "sqlpool.yaml", "config file (yaml, toml or json)")
			fs.Duration("report-interval", 0, "how often to log pool state, defaults to housekeeping_interval")
			return fs
		}(),
	})

	RegisterCommand(Command{
		Name:  "check",
		Short: "Opens the pool once, pings the database and prints the pool state",
		Func:  cmdCheck,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("check", pflag.ExitOnError)
			fs.StringP("config", "c", "sqlpool.yaml", "config file (yaml, toml or json)")
			fs.Duration("timeout", 0, "give up after this long, 0 waits for the configured retries")
			return fs
		}(),
	})
}
