package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Section decodes the resolved value of key into out, which must be a
// pointer to a struct or map. Fields are matched by their mapstructure tag
// and string-typed numbers and booleans are converted.
func (s *Store) Section(key Key, out any) error {
	v := s.Get(key)
	if v == nil {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrTypeMismatch, key, err)
	}
	return nil
}

// UpdateSettings is the update section.
type UpdateSettings struct {
	Nag               bool   `mapstructure:"nag"`
	NagWait           int    `mapstructure:"nagwait"`
	LastNaggedVersion string `mapstructure:"lastnaggedversion"`
	LastCheckTime     int64  `mapstructure:"lastchecktime"`
	CheckIntervalSecs int64  `mapstructure:"checkintervalsecs"`
}

// UpdateSection returns the update section.
func (s *Store) UpdateSection() (UpdateSettings, error) {
	var u UpdateSettings
	err := s.Section(KeyUpdate, &u)
	return u, err
}

// LoggingLevels returns the log level name for each module.
func (s *Store) LoggingLevels() (map[string]string, error) {
	levels := make(map[string]string)
	err := s.Section(KeyLogging, &levels)
	return levels, err
}

// SearchURLs returns the search engine URL templates by name.
func (s *Store) SearchURLs() (map[string]string, error) {
	urls := make(map[string]string)
	err := s.Section(KeySearchURLs, &urls)
	return urls, err
}
