package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/fleetlink/pkg/log"
)

const configFlagName = "config"

// envPrefix turns --mqtt.broker into FLEETLINK_MQTT_BROKER.
const envPrefix = "FLEETLINK"

var cfgFile string

func addConfigFlag(name string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile,
		fmt.Sprintf("Read %s configuration from the specified file (yaml, json or toml).", name))
}

// loadConfig merges the config file, environment and flags into viper and
// decodes the result into opts. Flags set on the command line win.
func loadConfig(fs *pflag.FlagSet, opts any) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(fs); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read configuration file %q: %w", cfgFile, err)
		}
		log.Info("Using config file", "file", viper.ConfigFileUsed())
	}

	if opts == nil {
		return nil
	}
	if err := viper.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// WatchConfig calls fn every time the config file changes. It does nothing
// when no config file was given.
func WatchConfig(fn func(v *viper.Viper, e fsnotify.Event)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		fn(viper.GetViper(), e)
	})
	viper.WatchConfig()
}
