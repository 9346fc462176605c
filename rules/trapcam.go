//go:build ruleguard

// Package gorules holds project lint rules for gocritic's ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StdErrorsNew flags plain errors that skip categorization. Errors built with
// internal/errors carry a category the HTTP layer maps to a status code.
//
//	return errors.New("bad image")                       // flagged
//	return errors.Newf("bad image").Category(...).Build() // ok
func StdErrorsNew(m dsl.Matcher) {
	m.Import("errors")

	m.Match(`errors.New($s)`).
		Where(m["s"].Type.Is("string") && !m.File().PkgPath.Matches(`/internal/errors$`)).
		Report(`use internal/errors to build a categorized error instead of errors.New`)
}

// StdLogger flags the standard log package outside main
func StdLogger(m dsl.Matcher) {
	m.Import("log")

	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Print($*_)`,
		`log.Fatalf($*_)`,
		`log.Fatal($*_)`,
	).
		Where(!m.File().PkgPath.Matches(`/cmd`)).
		Report(`use the module logger from internal/logger instead of the log package`)
}

// DefaultHTTPClient flags requests that bypass the shared client, which sets
// the user agent, timeouts and request metrics.
func DefaultHTTPClient(m dsl.Matcher) {
	m.Import("net/http")

	m.Match(
		`http.Get($*_)`,
		`http.Post($*_)`,
		`http.DefaultClient.Do($*_)`,
	).
		Report(`use internal/httpclient instead of the default HTTP client`)
}

// SleepWithoutContext flags time.Sleep in code that holds a context. Model
// retries and batch pacing must stop when the request is canceled.
func SleepWithoutContext(m dsl.Matcher) {
	m.Match(`time.Sleep($d)`).
		Where(!m.File().Name.Matches(`_test\.go$`) && m.File().Imports("context")).
		Report(`use a context-aware wait (select on ctx.Done and a timer) instead of time.Sleep`)
}

// BenchmarkLoop prefers b.Loop over counting to b.N
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $b.N; $i++ { $*body }`).
		Where(m["b"].Type.Is("*testing.B")).
		Report(`use for $b.Loop() { ... } instead of counting to $b.N`)
}
