// Package throttle provides an [http.RoundTripper] that rate-limits
// outgoing dispatches using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// The client package installs it when built with client.WithThrottle.
// It can also wrap any transport directly:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// A request that finds the bucket empty waits for a token or for its
// context to end, whichever comes first.
package throttle
