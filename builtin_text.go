package formula

import (
	"fmt"
	"strings"
)

func registerTextFuncs(r *Registry) {
	r.mustRegister(&FunctionDef{
		Name: "CONCATENATE", Category: "text", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			if err := checkForErrors(args); err != nil {
				return err, nil
			}
			var sb strings.Builder
			for _, arg := range args {
				if arr, ok := arg.(*ValueArray); ok {
					// array arguments concatenate in row-major order
					for value := range arr.Values() {
						sb.WriteString(toString(value))
					}
					continue
				}
				sb.WriteString(toString(arg))
			}
			return sb.String(), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "LEN", Category: "text", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			text, err := requireText("LEN", args, 0)
			if err != nil {
				return nil, err
			}
			return float64(len([]rune(text))), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "UPPER", Category: "text", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			text, err := requireText("UPPER", args, 0)
			if err != nil {
				return nil, err
			}
			return strings.ToUpper(text), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "LOWER", Category: "text", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			text, err := requireText("LOWER", args, 0)
			if err != nil {
				return nil, err
			}
			return strings.ToLower(text), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "TRIM", Category: "text", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			text, err := requireText("TRIM", args, 0)
			if err != nil {
				return nil, err
			}
			// collapse interior runs of spaces as well as trimming ends
			return strings.Join(strings.Fields(text), " "), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "TEXT", Category: "text", MinArgs: 2, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("TEXT", args, 0)
			if err != nil {
				return nil, err
			}
			if err := asError(args[1]); err != nil {
				return err, nil
			}
			code, ok := args[1].(string)
			if !ok {
				return nil, fmt.Errorf("TEXT format code must be text")
			}
			formatted, err := FormatNumber(num, code)
			if err != nil {
				return nil, err
			}
			return formatted, nil
		},
	})
}

// requireText coerces one argument to text using display conventions
func requireText(name string, args []Primitive, index int) (string, error) {
	value := args[index]
	if err := asError(value); err != nil {
		return "", err
	}
	if _, ok := value.(*ValueArray); ok {
		return "", fmt.Errorf("%s argument %d must be a scalar", name, index+1)
	}
	return toString(value), nil
}
