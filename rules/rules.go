//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via
// ruleguard, targeting patterns this codebase keeps running into.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupModernize detects old WaitGroup patterns that can use the
// Go 1.25 wg.Go() method.
//
// Old pattern (error-prone):
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
//
// New pattern (Go 1.25+):
//
//	wg.Go(func() {
//	    doSomething()
//	})
func WaitGroupModernize(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }() (Go 1.25+)").
		Suggest("$wg.Go(func() { $*_ })")

	m.Match(`go func() { $*_; $wg.Done() }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Use $wg.Go(func() { ... }) instead of manual Done() call (Go 1.25+)")

	m.Match(`$wg.Add(1)`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Consider using $wg.Go() which calls Add(1) automatically (Go 1.25+)")
}

// BenchmarkLoop detects the old benchmark iteration pattern and suggests
// b.Loop(), which keeps the compiler from optimizing the loop body away.
//
// See: https://pkg.go.dev/testing#B.Loop
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of for $i := 0; $i < $b.N; $i++ (Go 1.24+); if using $i in body, declare it separately")

	m.Match(`for range $b.N { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of for range $b.N (Go 1.24+)").
		Suggest("for $b.Loop() { $body }")
}

// TestingContext detects context.Background() in test functions. t.Context()
// is canceled when the test completes, so goroutines spun up by a test get a
// real shutdown signal instead of leaking past the goleak check.
//
// See: https://pkg.go.dev/testing#T.Context
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`.*_test\.go`)).
		Report("use t.Context() in tests so the context ends with the test (Go 1.24+)")
}

// TimeSince detects manual elapsed-time calculation. The batch and analyzer
// timing code does this a lot; keep it on the stdlib helper.
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($x)`).
		Report("use time.Since($x) instead of time.Now().Sub($x)").
		Suggest("time.Since($x)")
}

// PathJoin detects result and log paths assembled with string concatenation,
// which breaks on trailing separators and on Windows.
func PathJoin(m dsl.Matcher) {
	m.Match(`$dir + "/" + $name`).
		Where(m["dir"].Type.Is("string") && m["name"].Type.Is("string")).
		Report("use filepath.Join($dir, $name) instead of manual path concatenation").
		Suggest("filepath.Join($dir, $name)")
}
