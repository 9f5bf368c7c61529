package jsonsql

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const defaultMaxDepth = 64

// Options controls how a Builder renders queries.
type Options struct {
	// SeparatedValues moves literals into the values container and renders
	// placeholders in their place.
	SeparatedValues bool `mapstructure:"separatedValues" yaml:"separatedValues"`
	// NamedValues renders $p1, $p2... instead of positional $1, $2...
	NamedValues        bool   `mapstructure:"namedValues" yaml:"namedValues"`
	ValuesPrefix       string `mapstructure:"valuesPrefix" yaml:"valuesPrefix"`
	Dialect            string `mapstructure:"dialect" yaml:"dialect"`
	WrappedIdentifiers bool   `mapstructure:"wrappedIdentifiers" yaml:"wrappedIdentifiers"`
	// InlineScalars renders numbers and booleans as literals even when values
	// are separated.
	InlineScalars bool `mapstructure:"inlineScalars" yaml:"inlineScalars"`
	MaxDepth      int  `mapstructure:"maxDepth" yaml:"maxDepth"`

	Logger Logger `mapstructure:"-" yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		SeparatedValues:    true,
		NamedValues:        true,
		ValuesPrefix:       "$",
		Dialect:            "base",
		WrappedIdentifiers: true,
		MaxDepth:           defaultMaxDepth,
	}
}

// OptionsFromMap merges loosely typed options (as found in JSON or YAML
// configuration) over the defaults.
func OptionsFromMap(m map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(m) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(m); err != nil {
		return opts, fmt.Errorf("jsonsql: invalid options: %w", err)
	}
	return opts, nil
}

func (o Options) withDefaults() Options {
	if o.ValuesPrefix == "" {
		o.ValuesPrefix = "$"
	}
	if o.Dialect == "" {
		o.Dialect = "base"
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = nopLogger()
	}
	return o
}
