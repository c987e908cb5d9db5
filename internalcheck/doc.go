// Package internalcheck holds static checks over the library source.
//
// The tests load the production packages with golang.org/x/tools/go/packages
// and walk their syntax trees to enforce properties that ordinary unit tests
// cannot observe: the solver never forks work onto other goroutines, the
// public records carry no factorization material, and nothing formats
// secrets as hex.
//
// # Internal Use Only
//
// This package has no exported API and should not be imported.
package internalcheck
