package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetlink/internal/console"
	"github.com/autopeer-io/fleetlink/pkg/app"
	"github.com/autopeer-io/fleetlink/pkg/log"
	"github.com/autopeer-io/fleetlink/pkg/options"
)

type ConsoleOptions struct {
	HttpOptions  *options.HttpOptions  `json:"http" mapstructure:"http"`
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	FleetOptions *options.FleetOptions `json:"fleet" mapstructure:"fleet"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*ConsoleOptions)(nil)

func NewConsoleOptions() *ConsoleOptions {
	return &ConsoleOptions{
		HttpOptions:  options.NewHttpOptions(),
		MqttOptions:  options.NewMqttOptions(),
		FleetOptions: options.NewFleetOptions(),
		Log:          log.NewOptions(),
	}
}

func (o *ConsoleOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.FleetOptions.AddFlags(fss.FlagSet("fleet"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ConsoleOptions) Complete() error {
	if o.Log.Name == "" {
		o.Log.Name = "fleet-console"
	}
	return nil
}

func (o *ConsoleOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.FleetOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ConsoleOptions) Config() (*console.Config, error) {
	return &console.Config{
		HttpOptions:  o.HttpOptions,
		MqttOptions:  o.MqttOptions,
		FleetOptions: o.FleetOptions,
	}, nil
}
