// Package request builds the unified per-request facade: a Context bundling
// the request view (method, path, scalar-or-list query map, case-insensitive
// headers, parsed body and files), the response view (status, headers, and
// terminal JSON/Text/HTML/Redirect/Stream operations guarded by a monotonic
// sent flag), and the open string-keyed state and services bags.
//
// Body parsing is content-type driven with per-type byte ceilings. Declared
// lengths are checked before any read, and actual bytes are capped as well.
// All construction-time failures carry httperr classification and propagate
// outward; nothing is written to the transport until a terminal response
// operation runs.
//
// A Context belongs to exactly one request. It is not safe for concurrent
// use and must not outlive the exchange that created it.
package request
