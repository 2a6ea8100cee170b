// Package client sends requests to the restaurants API and normalizes
// every outcome into a single [Result].
//
// # Building a Client
//
// Use [Build] with the API url and functional options:
//
//	c, err := client.Build("https://api.example.com/v1",
//		client.WithTimeout(5 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Dispatching Requests
//
// [Client.Request] posts {"request": payload} and invokes the callback
// exactly once, from another goroutine:
//
//	c.Request(ctx, payload, func(res client.Result) {
//		if err := res.Err(); err != nil { ... }
//	})
//
// [Client.Do] returns the in-flight [Dispatch] instead, which can be
// waited on:
//
//	res, err := c.Do(ctx, payload).Wait(ctx)
//
// # Results
//
// A [Result] either carries the response value or an error code with a
// message. The codes [CodeTimeout], [CodeNetworkDown] and [CodeProtocol]
// are produced by the client; any other code was sent by the API.
// [Result.Err] exposes failures as a [*ResultError] matching one of
// [ErrTimeout], [ErrNetworkDown], [ErrProtocol] or [ErrApplication].
//
// # Transports
//
// By default requests go through net/http, optionally rate limited with
// [WithThrottle]. [WithTransportFactory] swaps in any [Transport]; see
// [github.com/openrest/restaurants-go/client/restytransport] for one
// backed by resty.
package client
