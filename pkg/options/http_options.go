package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions configures the operator API listener.
type HttpOptions struct {
	// Network is tcp, tcp4 or tcp6.
	Network string `json:"network" mapstructure:"network"`

	// Addr is the host:port to listen on.
	Addr string `json:"addr" mapstructure:"addr"`

	// Timeout bounds reading and answering a single request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewHttpOptions listens on every interface, port 8480.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Network: "tcp",
		Addr:    "0.0.0.0:8480",
		Timeout: 30 * time.Second,
	}
}

func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Network {
	case "tcp", "tcp4", "tcp6":
	default:
		errs = append(errs, fmt.Errorf("--http.network must be tcp, tcp4 or tcp6, got %q", o.Network))
	}
	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("--http.addr: %w", err))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--http.timeout must be positive, got %s", o.Timeout))
	}
	return errs
}

func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, "http.network", o.Network, "Network of the operator API listener (tcp, tcp4, tcp6).")
	fs.StringVar(&o.Addr, "http.addr", o.Addr, "Address of the operator API listener.")
	fs.DurationVar(&o.Timeout, "http.timeout", o.Timeout, "Per-request timeout of the operator API.")
}
