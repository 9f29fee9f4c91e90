package runtime

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// NativeNames lists every native function, in registration order.
var NativeNames = []string{"clock", "len", "str", "matches"}

// matchTimeout bounds a single matches() call.
const matchTimeout = time.Second

// IsNative reports whether name is a known native function.
func IsNative(name string) bool {
	for _, n := range NativeNames {
		if n == name {
			return true
		}
	}
	return false
}

// RegisterBuiltins defines the named natives in env. now supplies the
// clock() time source.
func RegisterBuiltins(env *Environment, names []string, now func() time.Time) error {
	table := builtinTable(now)
	for _, name := range names {
		b, ok := table[name]
		if !ok {
			return fmt.Errorf("unknown native function '%s'", name)
		}
		env.Define(name, b)
	}
	return nil
}

func builtinTable(now func() time.Time) map[string]*Builtin {
	patterns := make(map[string]*regexp2.Regexp)

	return map[string]*Builtin{
		"clock": {
			Name:   "clock",
			Params: 0,
			Fn: func(args []Value) (Value, error) {
				return NumberVal(float64(now().UnixNano()) / float64(time.Second)), nil
			},
		},

		// len counts runes of the NFC-normalised text form.
		"len": {
			Name:   "len",
			Params: 1,
			Fn: func(args []Value) (Value, error) {
				text := norm.NFC.String(args[0].String())
				return NumberVal(utf8.RuneCountInString(text)), nil
			},
		},

		"str": {
			Name:   "str",
			Params: 1,
			Fn: func(args []Value) (Value, error) {
				return StringVal(args[0].String()), nil
			},
		},

		"matches": {
			Name:   "matches",
			Params: 2,
			Fn: func(args []Value) (Value, error) {
				text, ok := args[0].(StringVal)
				if !ok {
					return nil, fmt.Errorf("first argument must be a string, got '%s'", args[0].TypeName())
				}
				pattern, ok := args[1].(StringVal)
				if !ok {
					return nil, fmt.Errorf("second argument must be a string, got '%s'", args[1].TypeName())
				}
				re, ok := patterns[string(pattern)]
				if !ok {
					var err error
					re, err = regexp2.Compile(string(pattern), regexp2.ECMAScript)
					if err != nil {
						return nil, fmt.Errorf("invalid pattern: %w", err)
					}
					re.MatchTimeout = matchTimeout
					patterns[string(pattern)] = re
				}
				found, err := re.MatchString(string(text))
				if err != nil {
					return nil, fmt.Errorf("match failed: %w", err)
				}
				return BoolVal(found), nil
			},
		},
	}
}
