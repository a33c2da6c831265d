// Package config loads parameter sources and tool settings from layered
// providers.
//
// Precedence, lowest to highest: defaults, YAML file, environment, explicit
// overrides, command-line flags that were set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Options selects the layers Load reads. Every field is optional.
type Options struct {
	// Defaults are the lowest layer, keyed by dotted path.
	Defaults map[string]any

	// File is a YAML file. A missing file is an error.
	File string

	// EnvPrefix enables the environment layer: PREFIX_A__B sets a.b.
	EnvPrefix string

	// Overrides sit above the environment, keyed by dotted path.
	Overrides map[string]any

	// Flags contributes every flag with Changed set.
	Flags *pflag.FlagSet

	// FlagKey maps a flag name to its config key. An empty result skips the
	// flag. When nil, kebab-case names become snake_case keys.
	FlagKey func(name string) string

	// Strict rejects keys that match no field of the target struct.
	Strict bool
}

// Load builds a P from the layers in opts. Fields are matched by their
// koanf struct tags.
func Load[P any](opts Options) (*P, error) {
	k, err := load(opts)
	if err != nil {
		return nil, err
	}
	var out P
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			ErrorUnused:      opts.Strict,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &out, nil
}

func load(opts Options) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if len(opts.Defaults) > 0 {
		if err := k.Load(confmap.Provider(opts.Defaults, "."), nil); err != nil {
			return nil, fmt.Errorf("load defaults: %w", err)
		}
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.File, err)
		}
	}

	if opts.EnvPrefix != "" {
		prefix := opts.EnvPrefix
		if err := k.Load(env.Provider(prefix, ".", func(s string) string {
			return EnvKey(prefix, s)
		}), nil); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	if opts.Flags != nil {
		keyOf := opts.FlagKey
		if keyOf == nil {
			keyOf = snakeCase
		}
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := keyOf(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	return k, nil
}

// EnvKey maps an environment variable name to a config key:
// TENSORTYPES_PARAMS__BATCH_SIZE becomes params.batch_size.
func EnvKey(prefix, name string) string {
	name = strings.TrimPrefix(name, prefix)
	return strings.ToLower(strings.ReplaceAll(name, "__", "."))
}

func snakeCase(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// FindFile returns explicit when set, otherwise the first candidate that
// exists, otherwise "".
func FindFile(explicit string, candidates ...string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ErrAssignment is returned for a malformed name=value pair.
var ErrAssignment = errors.New("invalid assignment")

// ParseAssignments turns name=value pairs into override keys under prefix.
// Values must be integers.
//
// Example:
//
//	ParseAssignments("params", []string{"batch_size=8"})
//	// map[params.batch_size:8]
func ParseAssignments(prefix string, pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w %q: want name=value", ErrAssignment, pair)
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w %q: value is not an integer", ErrAssignment, pair)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		out[key] = v
	}
	return out, nil
}
