package formula

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, got Primitive, want, tolerance float64) {
	t.Helper()
	num, ok := got.(float64)
	if !ok {
		t.Fatalf("got %T (%v), want number near %v", got, got, want)
	}
	if math.Abs(num-want) > tolerance {
		t.Errorf("got %v, want %v within %v", num, want, tolerance)
	}
}

func TestFVZeroRate(t *testing.T) {
	ctx := testContext(nil)
	// with no interest the cash flows sum linearly
	assertNumber(t, evalText(t, ctx, "FV(0,10,-100)"), 1000)
	assertNumber(t, evalText(t, ctx, "FV(0,10,-100,-500)"), 1500)
}

func TestFVCompounding(t *testing.T) {
	ctx := testContext(nil)
	// saving 200 a month at 6% annual for 10 months, starting balance
	// 500, deposits at period start
	assertClose(t, evalText(t, ctx, "FV(0.06/12,10,-200,-500,1)"), 2581.40, 0.01)

	// a deposit-only annuity
	assertClose(t, evalText(t, ctx, "FV(0.05,10,-1000)"), 12577.89, 0.01)

	// 60 monthly deposits of 200 at 5% annual
	assertClose(t, evalText(t, ctx, "FV(0.05/12,60,-200)"), 13601.216568168675, 1e-6)
}

func TestPVZeroRate(t *testing.T) {
	ctx := testContext(nil)
	assertNumber(t, evalText(t, ctx, "PV(0,10,-100)"), 1000)
}

func TestPMTZeroRate(t *testing.T) {
	ctx := testContext(nil)
	assertNumber(t, evalText(t, ctx, "PMT(0,10,1000)"), -100)
}

func TestAnnuityIdentities(t *testing.T) {
	ctx := testContext(nil)

	// the future value of PV(rate,n,pmt) plus the payments is zero
	t.Run("FV of PV cancels", func(t *testing.T) {
		assertClose(t, evalText(t, ctx, "FV(0.07,12,-250,PV(0.07,12,-250))"), 0, 1e-6)
	})

	// PMT amortizes a present value to exactly zero
	t.Run("FV of PMT cancels", func(t *testing.T) {
		assertClose(t, evalText(t, ctx, "FV(0.004,36,PMT(0.004,36,10000),10000)"), 0, 1e-6)
	})

	// the due-at-start flag shifts every payment by one compounding step
	t.Run("annuity due scales by one period", func(t *testing.T) {
		due := evalText(t, ctx, "FV(0.05,10,-1000,0,1)").(float64)
		ordinary := evalText(t, ctx, "FV(0.05,10,-1000,0,0)").(float64)
		assertClose(t, due, ordinary*1.05, 1e-6)
	})
}

func TestFinancialDomainErrors(t *testing.T) {
	ctx := testContext(nil)

	// rate at or below -100% per period
	assertErrorCode(t, evalText(t, ctx, "FV(-1,10,-100)"), ErrorCodeNum)
	assertErrorCode(t, evalText(t, ctx, "PV(-1.5,10,-100)"), ErrorCodeNum)

	// periods must be a positive integer
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,0,-100)"), ErrorCodeNum)
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,-3,-100)"), ErrorCodeNum)
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,2.5,-100)"), ErrorCodeNum)
	assertErrorCode(t, evalText(t, ctx, "PMT(0.05,0,1000)"), ErrorCodeNum)

	// the due-at flag is strictly 0 or 1
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,10,-100,0,2)"), ErrorCodeNum)
	assertErrorCode(t, evalText(t, ctx, "PMT(0.05,10,1000,0,0.5)"), ErrorCodeNum)
}

func TestFinancialTypeErrors(t *testing.T) {
	ctx := testContext(nil)
	assertErrorCode(t, evalText(t, ctx, `FV("rate",10,-100)`), ErrorCodeValue)
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,10)"), ErrorCodeValue)
	assertErrorCode(t, evalText(t, ctx, "FV(0.05,10,-100,0,1,9)"), ErrorCodeValue)
	assertErrorCode(t, evalText(t, ctx, "PMT(0.05,10,#REF!)"), ErrorCodeRef)
}
