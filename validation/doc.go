// Package validation validates configuration and request structs.
//
// Struct tags are checked with go-playground/validator. Two domain tags are
// registered on top of the builtin set:
//
//	weights  a []float64 pair whose members lie in [0,1] and whose sum rounds to 1
//	window   a [2]float64 or []float64 of length 2 with 0 <= start <= end
//
// Failures come back as INVALID_INPUT AppErrors carrying per-field details.
package validation
