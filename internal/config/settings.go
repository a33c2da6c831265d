package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Settings configure the tensortypes command.
type Settings struct {
	Manifest string `koanf:"manifest"`
	Format   string `koanf:"format"`
	Jobs     int    `koanf:"jobs"`
	Params   Values `koanf:"params"`
}

// Setting sources and defaults.
const (
	FileName      = "tensortypes.yaml"
	FileNameAlt   = "tensortypes.yml"
	EnvPrefix     = "TENSORTYPES_"
	DefaultFormat = "table"
	DefaultJobs   = 4
)

// LoadSettings reads Settings from the config file (explicit, or the first of
// FileName and FileNameAlt in the working directory), TENSORTYPES_*
// variables, the --set assignments and the changed flags. Unknown keys are
// errors.
func LoadSettings(explicit string, flags *pflag.FlagSet, assignments []string) (*Settings, string, error) {
	overrides, err := ParseAssignments("params", assignments)
	if err != nil {
		return nil, "", err
	}
	path := FindFile(explicit, FileName, FileNameAlt)
	s, err := Load[Settings](Options{
		Defaults: map[string]any{
			"format": DefaultFormat,
			"jobs":   DefaultJobs,
		},
		File:      path,
		EnvPrefix: EnvPrefix,
		Overrides: overrides,
		Flags:     flags,
		FlagKey:   settingsFlagKey,
		Strict:    true,
	})
	if err != nil {
		return nil, "", err
	}
	if s.Params == nil {
		s.Params = Values{}
	}
	if s.Jobs < 1 {
		return nil, "", fmt.Errorf("jobs must be at least 1, got %d", s.Jobs)
	}
	if err := s.Params.Validate(); err != nil {
		return nil, "", err
	}
	return s, path, nil
}

// settingsFlagKey keeps only the flags that name a setting.
func settingsFlagKey(name string) string {
	switch name {
	case "manifest", "format", "jobs":
		return name
	}
	return ""
}
