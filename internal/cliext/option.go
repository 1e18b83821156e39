// SPDX-License-Identifier: MPL-2.0

package cliext

// Nargs values for options accepting a variable number of arguments.
// Positive values demand exactly that many tokens.
const (
	// NargsOne is the default: a single value.
	NargsOne = 0
	// NargsPlus accepts one or more values.
	NargsPlus = -1
	// NargsStar accepts zero or more values.
	NargsStar = -2
)

// Converter turns one raw argument token into its typed value. A nil
// converter keeps the token as a string.
type Converter func(string) (any, error)

// Opt is a declared command-line argument descriptor: an Option, a
// Positional, a Flag, or a MutexGroup.
type Opt interface {
	isOpt()
}

// Option describes one command-line option.
type Option struct {
	// Key is the snake_case attribute name. The long flag is derived
	// from it by hyphenation; the configuration key equals Dest or Key.
	Key string

	// Short is the optional one-letter flag name.
	Short string

	// Help is the flag usage text.
	Help string

	// Required marks the option as mandatory on the command line. A
	// configured value satisfies a required option.
	Required bool

	// Configurable permits sourcing the default from the configuration
	// store. A configured value for a non-configurable option is an
	// error.
	Configurable bool

	// Default is the fallback value when neither flag nor configuration
	// provide one.
	Default string

	// Dest overrides the binding/configuration key.
	Dest string

	// Nargs declares multi-value behavior (NargsOne, NargsPlus,
	// NargsStar, or a literal count > 0).
	Nargs int

	// Convert is applied to each raw token after parsing.
	Convert Converter

	// section overrides the configuration section for this option.
	// Used by the shared flag groups, which read the core section.
	section string
}

func (*Option) isOpt() {}

// dest returns the binding key.
func (o *Option) dest() string {
	if o.Dest != "" {
		return o.Dest
	}
	return o.Key
}

// multi reports whether the option accepts more than one token.
func (o *Option) multi() bool {
	return o.Nargs == NargsPlus || o.Nargs == NargsStar || o.Nargs > 1
}

// Positional describes a positional argument.
type Positional struct {
	// Key is the binding key.
	Key string
	// Help is the usage text.
	Help string
	// Nargs declares how many tokens the positional consumes.
	Nargs int
	// Convert is applied to each raw token.
	Convert Converter
}

func (*Positional) isOpt() {}

// Flag describes a boolean option with store-const semantics: passing the
// flag stores Const, omitting it stores the logical negation.
type Flag struct {
	// Key is the snake_case attribute name.
	Key string
	// Short is the optional one-letter flag name.
	Short string
	// Help is the flag usage text.
	Help string
	// Const is the value stored when the flag is passed (true unless the
	// flag is an "off switch").
	Const bool
}

func (*Flag) isOpt() {}

// defaultValue is the value bound when the flag is absent.
func (f *Flag) defaultValue() bool { return !f.Const }

// MutexGroup declares mutually exclusive members. Groups may nest; the
// builder flattens them. At most one member may be configurable.
type MutexGroup struct {
	// Required demands that exactly one member is provided.
	Required bool
	// Members are the grouped descriptors (Options, Flags, or nested
	// groups).
	Members []Opt
}

func (*MutexGroup) isOpt() {}
