// Package errors provides structured errors for the routefilter CLI.
//
// Each error has a code (e.g., "R101") that maps to a category, a short
// message and a hint. Configuration errors can point at the offending line of
// the source they were read from.
//
// # Categories
//
//   - config: loading and validating routefilter.json
//   - navigation: matching and dispatching fragments
//   - server: the HTTP surface
//   - cli: command-line usage
//
// # Usage
//
//	err := errors.New("R101").
//	    WithSource("routefilter.json", data, syntaxErr.Offset).
//	    Wrap(syntaxErr)
//
//	errors.Print(os.Stderr, err)
//	// ERROR R101: Configuration is not valid JSON
//	//
//	//   routefilter.json:4:3
//	//
//	//        2 │   "routes": [
//	//        3 │     {"pattern": "page/:id", "handler": "page"},
//	//   →    4 │   ]
//	//          │   ^
//	//
//	//   Hint: Check for trailing commas and unquoted keys
package errors
