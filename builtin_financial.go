package formula

import "math"

// validateInterestRate rejects rates at or below -100% per period,
// where the compounding factor stops being meaningful
func validateInterestRate(name string, rate float64) error {
	if rate <= -1 {
		return errNum("%s rate must be greater than -1, got %v", name, rate)
	}
	return nil
}

// requirePeriods coerces the period count and rejects anything that is
// not a positive whole number
func requirePeriods(name string, args []Primitive, index int) (float64, error) {
	num, err := requireNumber(name, args, index)
	if err != nil {
		return 0, err
	}
	if num < 1 || num != math.Trunc(num) {
		return 0, errNum("%s periods must be a positive integer, got %v", name, num)
	}
	return num, nil
}

// requirePaymentType reads the optional due-at flag: 0 for payments at
// period end, 1 for period start
func requirePaymentType(name string, args []Primitive, index int) (float64, error) {
	if index >= len(args) {
		return 0, nil
	}
	num, err := requireNumber(name, args, index)
	if err != nil {
		return 0, err
	}
	if num != 0 && num != 1 {
		return 0, errNum("%s type must be 0 or 1, got %v", name, num)
	}
	return num, nil
}

// optionalNumber reads an optional trailing argument, defaulting to 0
func optionalNumber(name string, args []Primitive, index int) (float64, error) {
	if index >= len(args) {
		return 0, nil
	}
	return requireNumber(name, args, index)
}

// pow1p computes (1+rate)^periods, the compounding factor shared by the
// annuity functions
func pow1p(rate, periods float64) float64 {
	return math.Pow(1+rate, periods)
}

func registerFinancialFuncs(r *Registry) {
	r.mustRegister(&FunctionDef{
		Name: "FV", Category: "financial", MinArgs: 3, MaxArgs: 5,
		Eager: func(args []Primitive) (Primitive, error) {
			rate, err := requireNumber("FV", args, 0)
			if err != nil {
				return nil, err
			}
			if err := validateInterestRate("FV", rate); err != nil {
				return nil, err
			}
			periods, err := requirePeriods("FV", args, 1)
			if err != nil {
				return nil, err
			}
			payment, err := requireNumber("FV", args, 2)
			if err != nil {
				return nil, err
			}
			pv, err := optionalNumber("FV", args, 3)
			if err != nil {
				return nil, err
			}
			due, err := requirePaymentType("FV", args, 4)
			if err != nil {
				return nil, err
			}
			if rate == 0 {
				// no compounding, cash flows sum linearly
				return -(pv + payment*periods), nil
			}
			factor := pow1p(rate, periods)
			return -(pv*factor + payment*(1+rate*due)*(factor-1)/rate), nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "PV", Category: "financial", MinArgs: 3, MaxArgs: 5,
		Eager: func(args []Primitive) (Primitive, error) {
			rate, err := requireNumber("PV", args, 0)
			if err != nil {
				return nil, err
			}
			if err := validateInterestRate("PV", rate); err != nil {
				return nil, err
			}
			periods, err := requirePeriods("PV", args, 1)
			if err != nil {
				return nil, err
			}
			payment, err := requireNumber("PV", args, 2)
			if err != nil {
				return nil, err
			}
			fv, err := optionalNumber("PV", args, 3)
			if err != nil {
				return nil, err
			}
			due, err := requirePaymentType("PV", args, 4)
			if err != nil {
				return nil, err
			}
			if rate == 0 {
				return -(fv + payment*periods), nil
			}
			factor := pow1p(rate, periods)
			return -(fv + payment*(1+rate*due)*(factor-1)/rate) / factor, nil
		},
	})

	r.mustRegister(&FunctionDef{
		Name: "PMT", Category: "financial", MinArgs: 3, MaxArgs: 5,
		Eager: func(args []Primitive) (Primitive, error) {
			rate, err := requireNumber("PMT", args, 0)
			if err != nil {
				return nil, err
			}
			if err := validateInterestRate("PMT", rate); err != nil {
				return nil, err
			}
			periods, err := requirePeriods("PMT", args, 1)
			if err != nil {
				return nil, err
			}
			pv, err := requireNumber("PMT", args, 2)
			if err != nil {
				return nil, err
			}
			fv, err := optionalNumber("PMT", args, 3)
			if err != nil {
				return nil, err
			}
			due, err := requirePaymentType("PMT", args, 4)
			if err != nil {
				return nil, err
			}
			if rate == 0 {
				return -(pv + fv) / periods, nil
			}
			factor := pow1p(rate, periods)
			return -(pv*factor + fv) * rate / ((factor - 1) * (1 + rate*due)), nil
		},
	})
}
