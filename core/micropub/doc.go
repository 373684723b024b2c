// Package micropub talks to the remote publishing service over the Micropub protocol.
//
// Only the four operations the sync needs are implemented:
//   - Query: GET ?q=source&offset=&limit=, one page of posts.
//   - Create: POST a JSON h-entry, the new URL comes back in the Location header.
//   - Update: POST action=update with a replace map holding only the changed properties.
//   - Delete: POST action=delete. A 404 is reported as ErrAlreadyGone.
//
// Non-success responses become *retry.StatusError so the retry package can
// classify them. Authentication is a bearer token supplied through an
// oauth2.StaticTokenSource.
//
// Post content is normally returned as the markdown source. When a server
// returns the rendered form ({"html": "..."}), it is converted back to
// markdown so change detection compares like with like.
package micropub
