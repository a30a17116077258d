package formula

import (
	"fmt"
	"math"
	"strings"
)

// Thunk defers evaluation of one argument. lazy functions pull only the
// arguments they need, which is what makes IF and IFERROR short-circuit.
type Thunk func() Primitive

// EagerFunc receives fully evaluated arguments. a returned Go error is
// mapped onto an error sentinel by funcError; returning a *FormulaError
// as the Primitive passes it through untouched.
type EagerFunc func(args []Primitive) (Primitive, error)

// LazyFunc receives unevaluated thunks and controls evaluation order
type LazyFunc func(args []Thunk) (Primitive, error)

// numError marks a Go error from a function body as a numeric-domain
// violation so funcError maps it to #NUM! instead of #VALUE!
type numError struct {
	msg string
}

func (e *numError) Error() string {
	return e.msg
}

// errNum builds a numeric-domain violation
func errNum(format string, args ...any) error {
	return &numError{msg: fmt.Sprintf(format, args...)}
}

// FunctionDef describes one registered function. exactly one of Eager
// or Lazy is set; MaxArgs < 0 means variadic.
type FunctionDef struct {
	Name     string
	Category string
	MinArgs  int
	MaxArgs  int
	Eager    EagerFunc
	Lazy     LazyFunc
}

// call checks arity, evaluates arguments per the dispatch mode, and
// maps body errors to sentinels
func (d *FunctionDef) call(args []ASTNode, ctx *EvalContext) Primitive {
	if len(args) < d.MinArgs {
		return NewFormulaError(ErrorCodeValue, fmt.Sprintf("%s expects at least %d arguments, got %d", d.Name, d.MinArgs, len(args)))
	}
	if d.MaxArgs >= 0 && len(args) > d.MaxArgs {
		return NewFormulaError(ErrorCodeValue, fmt.Sprintf("%s expects at most %d arguments, got %d", d.Name, d.MaxArgs, len(args)))
	}

	if d.Lazy != nil {
		thunks := make([]Thunk, len(args))
		for i, arg := range args {
			node := arg
			thunks[i] = func() Primitive { return node.Eval(ctx) }
		}
		result, err := d.Lazy(thunks)
		if err != nil {
			return funcError(d.Name, err)
		}
		return result
	}

	values := make([]Primitive, len(args))
	for i, arg := range args {
		values[i] = arg.Eval(ctx)
	}
	result, err := d.Eager(values)
	if err != nil {
		return funcError(d.Name, err)
	}
	return result
}

// funcError maps a Go error from a function body to the right sentinel:
// a propagated sentinel passes through untouched, numeric-domain
// violations become #NUM!, everything else #VALUE!
func funcError(name string, err error) *FormulaError {
	if sentinel, ok := err.(*FormulaError); ok {
		return sentinel
	}
	msg := name + ": " + err.Error()
	if _, ok := err.(*numError); ok {
		return NewFormulaError(ErrorCodeNum, msg)
	}
	return NewFormulaError(ErrorCodeValue, msg)
}

// Registry holds the function table. hosts may build their own registry
// or extend a copy of the default one.
type Registry struct {
	funcs map[string]*FunctionDef
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*FunctionDef)}
}

// Register adds a function definition. names are case-insensitive and
// stored uppercased; registering a duplicate name is an error so typos
// in extension code fail loudly.
func (r *Registry) Register(def *FunctionDef) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("function definition must have a name")
	}
	if (def.Eager == nil) == (def.Lazy == nil) {
		return fmt.Errorf("function %s must set exactly one of Eager or Lazy", def.Name)
	}
	name := strings.ToUpper(def.Name)
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("function %s is already registered", name)
	}
	stored := *def
	stored.Name = name
	r.funcs[name] = &stored
	return nil
}

// mustRegister panics on a bad built-in definition; used only while
// constructing the default registry
func (r *Registry) mustRegister(def *FunctionDef) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup finds a definition by case-insensitive name
func (r *Registry) Lookup(name string) (*FunctionDef, bool) {
	def, ok := r.funcs[strings.ToUpper(name)]
	return def, ok
}

// Names returns the registered names, for diagnostics
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry builds a registry with the full built-in library
func DefaultRegistry() *Registry {
	r := NewRegistry()
	registerMathFuncs(r)
	registerLogicalFuncs(r)
	registerTextFuncs(r)
	registerLookupFuncs(r)
	registerFinancialFuncs(r)
	return r
}

// requireNumber coerces one argument to a number or fails with a
// descriptive type error
func requireNumber(name string, args []Primitive, index int) (float64, error) {
	value := args[index]
	if err := asError(value); err != nil {
		return 0, err
	}
	num, ok := toNumber(value)
	if !ok {
		return 0, fmt.Errorf("%s argument %d is not numeric", name, index+1)
	}
	return num, nil
}

// requireInteger coerces one argument to a whole number
func requireInteger(name string, args []Primitive, index int) (int, error) {
	num, err := requireNumber(name, args, index)
	if err != nil {
		return 0, err
	}
	if num != math.Trunc(num) {
		return 0, fmt.Errorf("%s argument %d must be an integer", name, index+1)
	}
	return int(num), nil
}

// checkForErrors returns the first error sentinel among the arguments,
// scanning arrays element-wise
func checkForErrors(args []Primitive) *FormulaError {
	for _, arg := range args {
		if err := asError(arg); err != nil {
			return err
		}
		if arr, ok := arg.(*ValueArray); ok {
			for value := range arr.Values() {
				if err := asError(value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
