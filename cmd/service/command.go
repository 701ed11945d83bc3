package service

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/internal/plugins"
)

type Options struct {
	ConfigPath string
	Init       string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "toml config path, env OTTERLY_API_* is used when empty")
	flagSet.StringVarP(&o.Init, "init", "i", "selfhost", fmt.Sprintf("deployment mode, one of %s", strings.Join(plugins.Modes(), "|")))
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "journal and reply relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	cfg, err := core.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app := core.MustSetupCore(cfg)
	plugins.Setup(app.InstallPlugins, opts.Init)
	return serve(app)
}
