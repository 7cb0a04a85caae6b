package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Flags returns the flags grouped by section, used for sectioned help.
	Flags() cliflag.NamedFlagSets

	// Validate checks the options after flags and config were applied.
	Validate() error
}

// NamedFlagSetOptions is implemented by the options of every command.
type NamedFlagSetOptions interface {
	CliOptions

	// Complete fills in derived fields before validation.
	Complete() error
}
