package validator

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the `validation` section of the configuration file. Zero values
// keep the defaults.
type Config struct {
	MinDescriptionLength int      `mapstructure:"min_description_length" json:"min_description_length" yaml:"min_description_length"`
	MaxBodyWords         int      `mapstructure:"max_body_words" json:"max_body_words" yaml:"max_body_words"`
	Placeholders         []string `mapstructure:"placeholders" json:"placeholders" yaml:"placeholders"`
	ReferenceExtensions  []string `mapstructure:"reference_extensions" json:"reference_extensions" yaml:"reference_extensions"`
}

// DecodeConfig decodes a raw settings map, such as viper.GetStringMap("validation").
func DecodeConfig(raw map[string]interface{}) (Config, error) {
	var config Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return config, errors.Wrap(err, "failed to create validation config decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return config, errors.Wrap(err, "failed to decode validation configuration")
	}
	return config, nil
}

// Options converts the configuration into validator options.
func (c Config) Options() []Option {
	var opts []Option
	if c.MinDescriptionLength > 0 {
		opts = append(opts, WithMinDescriptionLength(c.MinDescriptionLength))
	}
	if c.MaxBodyWords > 0 {
		opts = append(opts, WithMaxBodyWords(c.MaxBodyWords))
	}
	if len(c.Placeholders) > 0 {
		opts = append(opts, WithPlaceholders(c.Placeholders...))
	}
	if len(c.ReferenceExtensions) > 0 {
		opts = append(opts, WithReferenceExtensions(c.ReferenceExtensions...))
	}
	return opts
}
