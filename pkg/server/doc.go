// Package server exposes a router over HTTP.
//
// The surface is small:
//
//	POST /navigate              navigate to {"fragment": "..."}
//	GET  /routes                list the route table
//	POST /routes                register {"pattern": "...", "handler": "..."}
//	GET  /gates                 list dispatches held at the gate
//	POST /gates/{id}/resolve    release a held dispatch
//	POST /gates/{id}/reject     abort a held dispatch
//	GET  /events                WebSocket stream of dispatch events
//	GET  /metrics               Prometheus metrics
//
// A Router is not safe for concurrent use, so every request that touches it
// runs on a loop.Loop. The same loop should be the interceptor's executor so
// dispatches resumed by a gate run there too.
//
// Usage:
//
//	l := loop.New(0)
//	hub := server.NewHub()
//	ic := filter.New(filter.WithExecutor(l), filter.WithObserver(hub))
//	r := router.New(router.WithInterceptor(ic))
//
//	srv := server.New(server.DefaultConfig(), r, l, server.WithHub(hub))
//	go l.Run(ctx)
//	srv.Run(ctx)
package server
