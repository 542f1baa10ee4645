// Package ownership infers, for every use of every binding in a function,
// whether the value is moved, borrowed shared, borrowed mutably, duplicated
// or dereferenced.
//
// The pipeline for one function is
//
//	collect -> liveness -> escapes -> captures -> classes -> resolve -> loans -> emit -> Agree
//
// Infer runs it. It reads only the function, the frozen capability registry
// and the summaries of already analysed callees, so results can be cached by
// a hash of those inputs and functions can be analysed in parallel.
package ownership
