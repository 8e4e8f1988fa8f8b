// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends defines the interface a lowering target needs to implement to be used by fxlower, and
// the registry of available backends.
//
// A backend bundles the conversion Registry from traced operators to the IR, the rewrite rules it needs
// applied beforehand, the code Emitter for its native graph-building language, and the assembly of the
// final artifacts.
//
// Backends register themselves during initialization, usually it's enough to include:
//
//	import _ "github.com/gomlx/fxlower/backends/default"
//
// And then create one with New (default configuration) or NewWithConfig.
package backends

import (
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/fxlower/pkg/codegen"
	"github.com/gomlx/fxlower/pkg/codegen/harness"
	"github.com/gomlx/fxlower/pkg/conversion"
	"github.com/pkg/errors"
)

// Backend is the API that needs to be implemented by an fxlower backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "ascend".
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// Capabilities returns the operators and dtypes the backend can emit.
	Capabilities() Capabilities

	// Registry returns the conversions from traced operators to the IR. It is created once per backend.
	Registry() *conversion.Registry

	// Rules returns the rewrite rules applied to a graph before its conversion, in order.
	Rules() []conversion.Rule

	// NewEmitter returns a code emitter for one compilation.
	NewEmitter() codegen.Emitter

	// DefaultOptions returns the assembly options given by the backend configuration.
	DefaultOptions() harness.Options

	// Assemble generates the compilation unit, the host wrapper and the complete program of a unit.
	Assemble(unit *codegen.Unit, opts harness.Options) (*harness.Artifacts, error)
}

// Constructor takes a config string (optionally empty) and returns a Backend.
// It panics (with an error) for invalid configurations.
type Constructor func(config string) Backend

var (
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	return slices.Sorted(maps.Keys(registeredConstructors))
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// FXLOWER_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "ascend") and
// "<backend_configuration>" is a comma separated list of backend specific options (e.g.: "graph_id=3").
const FXLOWER_BACKEND = "FXLOWER_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment FXLOWER_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() Backend {
	config, found := os.LookupEnv(FXLOWER_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "ascend") and
// "<backend_configuration>" is backend specific, usually options parsed with ParseOptions.
//
// A config without ":" is taken as a backend name if one is registered with that name, otherwise as the
// configuration of the first registered backend.
//
// It panics if the backend is not found or the configuration is invalid.
func NewWithConfig(config string) Backend {
	if len(registeredConstructors) == 0 {
		exceptions.Panicf(`no registered backends for fxlower -- maybe import the default ones with import _ "github.com/gomlx/fxlower/backends/default"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if _, found := registeredConstructors[config]; found {
		backendName, backendConfig = config, ""
	}
	constructor, found := registeredConstructors[backendName]
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given, registered backends: %v", backendName, config, List())
	}
	return constructor(backendConfig)
}

// NewOrErr is like NewWithConfig, but returns an error instead of panicking.
// If config is empty, it behaves like New.
func NewOrErr(config string) (backend Backend, err error) {
	err = exceptions.TryCatch[error](func() {
		if config == "" {
			backend = New()
		} else {
			backend = NewWithConfig(config)
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "creating backend for configuration %q", config)
	}
	return backend, nil
}

// Options of a backend configuration: a comma separated list of "key=value" (or just "key", meaning "true").
type Options map[string]string

// ParseOptions parses the backend configuration "key1=value1,key2,...". Keys are case-sensitive and can't be
// repeated.
func ParseOptions(config string) (Options, error) {
	options := make(Options)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Errorf("invalid option %q in backend configuration %q", part, config)
		}
		if _, found := options[key]; found {
			return nil, errors.Errorf("option %q given more than once in backend configuration %q", key, config)
		}
		if !hasValue {
			value = "true"
		}
		options[key] = strings.TrimSpace(value)
	}
	return options, nil
}

// CheckKnown returns an error if any of the options is not one of the known keys.
func (o Options) CheckKnown(known ...string) error {
	for _, key := range slices.Sorted(maps.Keys(o)) {
		if !slices.Contains(known, key) {
			return errors.Errorf("unknown backend option %q, valid options are %v", key, slices.Sorted(slices.Values(known)))
		}
	}
	return nil
}

// Int returns the integer value of the option key, or defaultValue if not set.
func (o Options) Int(key string, defaultValue int) (int, error) {
	value, found := o[key]
	if !found {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "option %s=%q must be an integer", key, value)
	}
	return i, nil
}

// Bool returns the boolean value of the option key, or defaultValue if not set.
func (o Options) Bool(key string, defaultValue bool) (bool, error) {
	value, found := o[key]
	if !found {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Wrapf(err, "option %s=%q must be a boolean", key, value)
	}
	return b, nil
}

// Ints returns the list of integers of the option key, separated by "+" (e.g. "2+3"), or nil if not set.
func (o Options) Ints(key string) ([]int, error) {
	value, found := o[key]
	if !found || value == "" {
		return nil, nil
	}
	parts := strings.Split(value, "+")
	values := make([]int, len(parts))
	for ii, part := range parts {
		var err error
		if values[ii], err = strconv.Atoi(strings.TrimSpace(part)); err != nil {
			return nil, errors.Wrapf(err, "option %s=%q must be a list of integers separated by \"+\"", key, value)
		}
	}
	return values, nil
}
