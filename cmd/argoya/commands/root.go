package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"argoya/internal/app"
)

var (
	cfgFile string
	appCtx  *app.App
)

// flagBindings maps persistent flags onto config keys.
var flagBindings = map[string]string{
	"relay":        "relay.url",
	"log-level":    "log.level",
	"log-file":     "log.file",
	"metrics-file": "metrics.file",
}

func Execute() error {
	root := newRootCmd(viper.New())
	err := root.Execute()
	if appCtx != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := appCtx.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		appCtx = nil
	}
	return err
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:          "argoya",
		Short:        "Ephemeral, pseudonymous group chat",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(v, cfgFile)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.argoya/argoya.yaml)")
	pf.String("relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error, off")
	pf.String("log-file", "", "log file (default ~/.argoya/argoya.log)")
	pf.String("metrics-file", "", "write periodic metric snapshots to this file")
	for flag, key := range flagBindings {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(chatCmd(), sendCmd(), usersCmd(), deriveKeyCmd())
	return root
}
