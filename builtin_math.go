package formula

import (
	"fmt"
	"math"
	"sort"
)

// collectNumbers flattens arguments into a number slice for aggregate
// functions. direct scalar arguments must coerce to numbers; inside
// arrays only native numbers participate and text or booleans are
// skipped, matching how host applications treat referenced regions.
// the first error sentinel anywhere aborts the collection.
func collectNumbers(name string, args []Primitive) ([]float64, error) {
	var nums []float64
	for i, arg := range args {
		if err := asError(arg); err != nil {
			return nil, err
		}
		arr, ok := arg.(*ValueArray)
		if !ok {
			num, numOk := toNumber(arg)
			if !numOk {
				return nil, fmt.Errorf("%s argument %d is not numeric", name, i+1)
			}
			nums = append(nums, num)
			continue
		}
		for value := range arr.Values() {
			if err := asError(value); err != nil {
				return nil, err
			}
			if num, isNum := value.(float64); isNum {
				nums = append(nums, num)
			}
		}
	}
	return nums, nil
}

func registerMathFuncs(r *Registry) {
	r.mustRegister(&FunctionDef{
		Name: "SUM", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			nums, err := collectNumbers("SUM", args)
			if err != nil {
				return nil, err
			}
			total := 0.0
			for _, num := range nums {
				total += num
			}
			return total, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "AVERAGE", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			nums, err := collectNumbers("AVERAGE", args)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return NewFormulaError(ErrorCodeDiv0, "AVERAGE of no numeric values"), nil
			}
			total := 0.0
			for _, num := range nums {
				total += num
			}
			return total / float64(len(nums)), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "COUNT", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			// COUNT tallies numeric values only; non-numeric cells and
			// arguments are simply not counted
			count := 0
			for _, arg := range args {
				if err := asError(arg); err != nil {
					return nil, err
				}
				if arr, ok := arg.(*ValueArray); ok {
					for value := range arr.Values() {
						if err := asError(value); err != nil {
							return nil, err
						}
						if _, isNum := value.(float64); isNum {
							count++
						}
					}
					continue
				}
				if _, ok := toNumber(arg); ok && arg != nil {
					count++
				}
			}
			return float64(count), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "COUNTA", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			// COUNTA tallies everything that is not blank
			count := 0
			for _, arg := range args {
				if err := asError(arg); err != nil {
					return nil, err
				}
				if arr, ok := arg.(*ValueArray); ok {
					for value := range arr.Values() {
						if err := asError(value); err != nil {
							return nil, err
						}
						if value != nil {
							count++
						}
					}
					continue
				}
				if arg != nil {
					count++
				}
			}
			return float64(count), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "MIN", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			nums, err := collectNumbers("MIN", args)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return 0.0, nil
			}
			minimum := nums[0]
			for _, num := range nums[1:] {
				if num < minimum {
					minimum = num
				}
			}
			return minimum, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "MAX", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			nums, err := collectNumbers("MAX", args)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return 0.0, nil
			}
			maximum := nums[0]
			for _, num := range nums[1:] {
				if num > maximum {
					maximum = num
				}
			}
			return maximum, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "MEDIAN", Category: "math", MinArgs: 1, MaxArgs: -1,
		Eager: func(args []Primitive) (Primitive, error) {
			nums, err := collectNumbers("MEDIAN", args)
			if err != nil {
				return nil, err
			}
			if len(nums) == 0 {
				return nil, errNum("MEDIAN of no numeric values")
			}
			sorted := make([]float64, len(nums))
			copy(sorted, nums)
			sort.Float64s(sorted)
			mid := len(sorted) / 2
			if len(sorted)%2 == 1 {
				return sorted[mid], nil
			}
			return (sorted[mid-1] + sorted[mid]) / 2, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "ABS", Category: "math", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("ABS", args, 0)
			if err != nil {
				return nil, err
			}
			return math.Abs(num), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "ROUND", Category: "math", MinArgs: 1, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("ROUND", args, 0)
			if err != nil {
				return nil, err
			}
			digits := 0
			if len(args) == 2 {
				digits, err = requireInteger("ROUND", args, 1)
				if err != nil {
					return nil, err
				}
			}
			scale := math.Pow(10, float64(digits))
			// round half away from zero
			return math.Floor(math.Abs(num)*scale+0.5) / scale * math.Copysign(1, num), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "FLOOR", Category: "math", MinArgs: 1, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("FLOOR", args, 0)
			if err != nil {
				return nil, err
			}
			significance := 1.0
			if len(args) == 2 {
				significance, err = requireNumber("FLOOR", args, 1)
				if err != nil {
					return nil, err
				}
			}
			if significance == 0 {
				return nil, errNum("FLOOR significance must not be zero")
			}
			if num > 0 && significance < 0 {
				return nil, errNum("FLOOR sign mismatch between number and significance")
			}
			return math.Floor(num/significance) * significance, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "CEILING", Category: "math", MinArgs: 1, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("CEILING", args, 0)
			if err != nil {
				return nil, err
			}
			significance := 1.0
			if len(args) == 2 {
				significance, err = requireNumber("CEILING", args, 1)
				if err != nil {
					return nil, err
				}
			}
			if significance == 0 {
				return nil, errNum("CEILING significance must not be zero")
			}
			if num > 0 && significance < 0 {
				return nil, errNum("CEILING sign mismatch between number and significance")
			}
			return math.Ceil(num/significance) * significance, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "SQRT", Category: "math", MinArgs: 1, MaxArgs: 1,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("SQRT", args, 0)
			if err != nil {
				return nil, err
			}
			if num < 0 {
				return nil, errNum("SQRT of negative number %v", num)
			}
			return math.Sqrt(num), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "POWER", Category: "math", MinArgs: 2, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			base, err := requireNumber("POWER", args, 0)
			if err != nil {
				return nil, err
			}
			exponent, err := requireNumber("POWER", args, 1)
			if err != nil {
				return nil, err
			}
			result := math.Pow(base, exponent)
			if math.IsNaN(result) {
				return nil, errNum("POWER result is undefined for %v^%v", base, exponent)
			}
			return result, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "MOD", Category: "math", MinArgs: 2, MaxArgs: 2,
		Eager: func(args []Primitive) (Primitive, error) {
			num, err := requireNumber("MOD", args, 0)
			if err != nil {
				return nil, err
			}
			divisor, err := requireNumber("MOD", args, 1)
			if err != nil {
				return nil, err
			}
			if divisor == 0 {
				return NewFormulaError(ErrorCodeDiv0, "MOD divisor is zero"), nil
			}
			// result carries the sign of the divisor
			result := math.Mod(num, divisor)
			if result != 0 && (result < 0) != (divisor < 0) {
				result += divisor
			}
			return result, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "PI", Category: "math", MinArgs: 0, MaxArgs: 0,
		Eager: func(args []Primitive) (Primitive, error) {
			return math.Pi, nil
		},
	})
}
