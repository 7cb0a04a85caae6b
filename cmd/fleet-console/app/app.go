package app

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetlink/cmd/fleet-console/app/options"
	"github.com/autopeer-io/fleetlink/pkg/app"
	"github.com/autopeer-io/fleetlink/pkg/log"
	pkgoptions "github.com/autopeer-io/fleetlink/pkg/options"
)

const (
	commandName = "fleet-console"
	commandDesc = `The fleet console ingests boat telemetry from the MQTT broker and
serves operator sessions over HTTP. Each session can take manual control
of a boat, send it to a point, or run a waypoint mission.`
)

func NewApp() *app.App {
	opts := options.NewConsoleOptions()
	application := app.NewApp(
		commandName,
		"Launch the fleet operator console",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithSubCommands(newStatusCommand()),
	)
	return application
}

func run(opts *options.ConsoleOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		log.Init(opts.Log)
		defer log.Sync()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		srv, err := cfg.NewConsoleServer()
		if err != nil {
			return fmt.Errorf("failed to create console: %w", err)
		}

		app.WatchConfig(func(v *viper.Viper, _ fsnotify.Event) {
			if lvl := v.GetString("log.level"); lvl != "" && lvl != log.Level() {
				if err := log.SetLevel(lvl); err != nil {
					log.Warn("Ignoring log level from changed config", "level", lvl)
				} else {
					log.Info("Log level changed", "level", lvl)
				}
			}

			fo := pkgoptions.NewFleetOptions()
			if err := v.UnmarshalKey("fleet", fo); err != nil {
				log.Error(err, "Ignoring fleet tuning from changed config")
				return
			}
			if errs := fo.Validate(); len(errs) > 0 {
				log.Warn("Ignoring invalid fleet tuning", "errors", fmt.Sprint(errs))
				return
			}
			srv.Reconfigure(fo)
		})

		return srv.Run(ctx)
	}
}
