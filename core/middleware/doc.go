// Package middleware contains HTTP middleware for the status API.
//
// # Components
//
//   - auth: API key validation built on Fiber's keyauth middleware.
//   - rayid: Request ID (RayID) generation built on Fiber's requestid middleware,
//     stored in the "ray_id" local and echoed in the X-Ray-ID response header.
package middleware
