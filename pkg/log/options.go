package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures the global logger.
type Options struct {
	// Name is prepended to every logger name.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is one of debug, info, warn, error. It can be changed at runtime
	// by editing the config file.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format,omitempty" mapstructure:"format"`

	// EnableColor colors the level in console format.
	EnableColor bool `json:"enable-color,omitempty" mapstructure:"enable-color"`

	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`

	// CallerSkip is the number of wrapper frames above zap.
	CallerSkip int `json:"caller-skip,omitempty" mapstructure:"caller-skip"`

	// OutputPaths are zap sinks such as stdout or a file path.
	OutputPaths []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

// NewOptions returns the defaults: info level, colored console on stdout.
func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      FormatConsole,
		EnableColor: true,
		CallerSkip:  2, // package-level helper + zapLogger method
		OutputPaths: []string{"stdout"},
	}
}

// Validate rejects unknown levels and formats.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if _, err := parseLevel(o.Level); err != nil {
		errs = append(errs, fmt.Errorf("--log.level: %w", err))
	}
	if o.Format != FormatConsole && o.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("--log.format must be %q or %q, got %q", FormatConsole, FormatJSON, o.Format))
	}
	if o.CallerSkip < 0 {
		errs = append(errs, fmt.Errorf("--log.caller-skip must not be negative, got %d", o.CallerSkip))
	}
	return errs
}

// AddFlags binds the options to fs under the "log." prefix.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "Name prepended to every logger.")
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum level: debug, info, warn or error.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Output format: console or json.")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Color the level in console format.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Omit the file:line caller field.")
	fs.IntVar(&o.CallerSkip, "log.caller-skip", o.CallerSkip, "Number of caller frames to skip.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Output sinks, e.g. stdout or /var/log/fleet-console.log.")
}
