// Package server exposes the reconciliation service as a JSON API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [MuxRouter]
// implements it on gorilla/mux. [Middleware] wraps the whole router in reverse
// order (last added executes first), so unmatched routes are logged too.
//
// Custom handlers implement [Handler] and mount their routes on the API
// subrouter in Register.
//
// # API
//
// [APIHandler] serves under /api:
//
//	GET    /executor/status
//	GET    /playlists?kind=source|target
//	GET    /playlists/{id}
//	POST   /sources                 import an extractor document
//	DELETE /sources/{id}
//	POST   /sources/{id}/migrated   {keys|indices, remove}
//	POST   /sources/{id}/resolved   {keys|indices, remove}
//	POST   /targets                 {name, description}
//	POST   /targets/sync?songs=true
//	DELETE /targets/{id}
//	POST   /targets/{id}/refresh
//	POST   /targets/{id}/insert     {key, fromId, index}
//	POST   /targets/{id}/move       {key, direction, positions}
//	POST   /targets/{id}/remove     {keys}
//	GET    /diff?source=&target=
//	POST   /diff/fix                {sourceId, targetId, index}
//	POST   /migrations              run a migration
//	GET    /migrations?source=&target=&status=&limit=
//
// Errors are replied as {"ok": false, "error": ...}. Executor errors keep
// their status, code and details.
package server
