package formula

import "fmt"

func registerLogicalFuncs(r *Registry) {
	r.mustRegister(&FunctionDef{
		Name: "IF", Category: "logical", MinArgs: 2, MaxArgs: 3,
		Lazy: func(args []Thunk) (Primitive, error) {
			condition := args[0]()
			if err := asError(condition); err != nil {
				return err, nil
			}
			if isTruthy(condition) {
				return args[1](), nil
			}
			if len(args) == 3 {
				return args[2](), nil
			}
			return false, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "IFERROR", Category: "logical", MinArgs: 2, MaxArgs: 2,
		Lazy: func(args []Thunk) (Primitive, error) {
			value := args[0]()
			if asError(value) != nil {
				return args[1](), nil
			}
			return value, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "AND", Category: "logical", MinArgs: 1, MaxArgs: -1,
		Lazy: func(args []Thunk) (Primitive, error) {
			// short-circuits on the first falsy argument; later thunks
			// are never evaluated
			for _, arg := range args {
				value := arg()
				if err := asError(value); err != nil {
					return err, nil
				}
				if arr, ok := value.(*ValueArray); ok {
					for cell := range arr.Values() {
						if err := asError(cell); err != nil {
							return err, nil
						}
						if !isTruthy(cell) {
							return false, nil
						}
					}
					continue
				}
				if !isTruthy(value) {
					return false, nil
				}
			}
			return true, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "OR", Category: "logical", MinArgs: 1, MaxArgs: -1,
		Lazy: func(args []Thunk) (Primitive, error) {
			for _, arg := range args {
				value := arg()
				if err := asError(value); err != nil {
					return err, nil
				}
				if arr, ok := value.(*ValueArray); ok {
					for cell := range arr.Values() {
						if err := asError(cell); err != nil {
							return err, nil
						}
						if isTruthy(cell) {
							return true, nil
						}
					}
					continue
				}
				if isTruthy(value) {
					return true, nil
				}
			}
			return false, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "NOT", Category: "logical", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			if err := asError(args[0]); err != nil {
				return err, nil
			}
			if _, ok := args[0].(*ValueArray); ok {
				return nil, fmt.Errorf("NOT argument must be a scalar")
			}
			return !isTruthy(args[0]), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "ISERROR", Category: "logical", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			// error arguments are inspected, not propagated
			return asError(args[0]) != nil, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "ISBLANK", Category: "logical", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			if err := asError(args[0]); err != nil {
				return err, nil
			}
			return args[0] == nil, nil
		},
	})
}
