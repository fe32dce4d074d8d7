package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"accreditation/internal/config"
	"accreditation/internal/logging"
)

type options struct {
	configFile string
	v          *viper.Viper
}

func (o *options) load() (*config.Config, *zap.Logger, error) {
	config.Init(o.v, o.configFile)
	cfg, err := config.Load(o.v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	root := &cobra.Command{
		Use:           "accredctl",
		Short:         "Manage the accreditation scoring catalog.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./accreditation.yaml)")
	root.PersistentFlags().String("catalog-path", "", "catalog YAML file (default: embedded catalog)")
	root.PersistentFlags().String("log-level", "warn", "log level")
	_ = opts.v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newCheckCmd(opts), newSeedCmd(opts))
	return root
}
