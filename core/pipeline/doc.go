// Package pipeline wires one inbound HTTP exchange through the request
// core: correlation id assignment, context construction with body parsing,
// the composed extension chain (error boundary first, CORS when enabled,
// then application extensions), and the terminal hand-off to the external
// route dispatcher.
//
// The pipeline guarantees exactly one structured response per exchange.
// Failures during chain execution are formatted by the error boundary;
// failures outside its reach (context construction, the boundary's own
// write) fall back to a minimal JSON envelope written directly against the
// transport, unless headers have already been flushed, in which case only
// diagnostics are logged.
//
//	h := pipeline.New(routes,
//		pipeline.WithLogger(log),
//		pipeline.WithCORS(middleware.CORSConfig{AllowOrigins: []string{"https://app.example.com"}}),
//		pipeline.WithExtensions(middleware.Logging()),
//	)
//	http.ListenAndServe(":8080", h)
package pipeline
