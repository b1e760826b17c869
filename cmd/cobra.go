package sqlpoolcmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use: "sqlpool",
	Long: `
	sqlpool keeps a bounded pool of database connections healthy
`,
	Example: `  $ sqlpool run --config sqlpool.yaml
  $ sqlpool check --config sqlpool.toml
  `,

	// errors from the pool are already logged, the usage text just buries them
	SilenceUsage: true,
}

const fullDocsFooter = `Environment variables prefixed with SQLPOOL_ override the config file.`

func init() {
	rootCmd.SetHelpTemplate(rootCmd.HelpTemplate() + "\n" + fullDocsFooter + "\n")

	rootCmd.PersistentFlags().String("log-level", "info", "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev", false, "human readable development logging")
}

// Command is a subcommand of sqlpool.
type Command struct {
	Name  string
	Short string
	Long  string
	Func  CommandFunc
	Flags *pflag.FlagSet
}

// CommandFunc runs a command and returns the process exit code.
type CommandFunc func(Flags) (int, error)

// RegisterCommand adds cmd to the root command.
func RegisterCommand(cmd Command) {
	rootCmd.AddCommand(commandToCobra(cmd))
}

func commandToCobra(command Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   command.Name,
		Short: command.Short,
		Long:  command.Long,
	}
	cmd.RunE = WrapCommandFuncForCobra(command.Func)
	if command.Flags != nil {
		cmd.Flags().AddFlagSet(command.Flags)
	}
	return cmd
}

// WrapCommandFuncForCobra wraps a CommandFunc for use
// in a cobra command's RunE field.
func WrapCommandFuncForCobra(f CommandFunc) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		code, err := f(Flags{cmd.Flags()})
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	}
}

func Main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
