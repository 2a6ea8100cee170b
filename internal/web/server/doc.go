// Package server runs an [net/http.Server] until its context ends and
// then shuts it down gracefully.
//
// Basic usage:
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	srv := server.New(app, server.WithHost(":8086"))
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// Shutdown hooks registered with [WithShutdownFunc] run before in-flight
// requests are drained.
package server
