// Package services defines the [MutationExecutor] boundary to the music provider and its implementations.
//
// # Executor Protocol
//
// Every provider call is one JSON object with an "action" field. The reply is a
// JSON object carrying "ok": true with action specific fields, or "ok": false
// with "error", "code", "status" and optional "details", "reason" and "quota".
//
// # Client and Transports
//
// [Client] implements MutationExecutor over a [Transport]:
//   - [ProcessTransport] runs the executor as a subprocess, payload on stdin, reply on stdout.
//     The auth file is exported as YTMUSIC_AUTH_FILE.
//   - [HTTPTransport] posts to a proxy wrapping the executor. The auth file is sent
//     via the X-Auth-File header.
//
// Calls are throttled with a token bucket when [ClientOpts.RateLimit] is set.
//
// # In-Memory Executor
//
// [MemoryExecutor] keeps playlists in process and searches a fixed catalog with
// [PickBestMatch]. It backs dry runs and tests.
//
// # Error Handling
//
//   - [*ExecutorError] : the executor answered ok:false; matches [shared.ErrExecutorBusiness]
//   - [shared.ErrExecutorTransport] : no usable reply (spawn failure, timeout, invalid JSON)
package services
