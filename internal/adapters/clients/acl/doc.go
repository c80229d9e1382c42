// Package acl is the anti-corruption layer between the remote posts API and
// the quote domain.
//
// The remote side speaks jsonplaceholder's post shape ({userId, id, title,
// body}); the domain only knows {text, category}. Everything that crosses the
// boundary goes through this package:
//
//   - [PostsClient] fetches and creates posts and translates them to quotes
//   - [MapHTTPError] turns transport failures and non-2xx statuses into
//     [domain.NetworkError]
//   - [DecodeResponse] turns malformed bodies into [domain.ParseError]
//   - [TranslateSlice] applies a translator and drops items it rejects
//
// Client-level errors ([clients.ErrCircuitOpen], [clients.ErrMaxRetriesExceeded])
// also become [domain.NetworkError] with the operation in the reason.
package acl
