package calc

import "math"

func init() {
	register(
		&FunctionDef{Name: "PMT", MinArgs: 3, MaxArgs: 5, Params: []ParamKind{ParamNumber}, Call: pmt},
	)
}

// pmt is the payment per period of an annuity with a constant rate. Type 1
// pays at the start of each period instead of the end.
func pmt(_ *CallContext, args []Arg) Value {
	rate, periods, pv := args[0].Value.Num(), args[1].Value.Num(), args[2].Value.Num()
	fv := 0.0
	if len(args) > 3 {
		fv = args[3].Value.Num()
	}
	due := len(args) > 4 && args[4].Value.Num() != 0
	if periods == 0 {
		return ErrorValue(ErrorNumericInvalid)
	}
	if rate == 0 {
		return numberResult(-(pv + fv) / periods)
	}
	growth := math.Pow(1+rate, periods)
	payment := (-fv - pv*growth) / ((growth - 1) / rate)
	if due {
		payment /= 1 + rate
	}
	return numberResult(payment)
}
