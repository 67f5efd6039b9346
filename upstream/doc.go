// Package upstream talks to the chat-completion API that promptrelay sits
// in front of.
//
// The wire types decode a client request, keep every member they do not
// model in an Extra map, and encode it again with those members intact, so a
// rewritten request loses nothing the client sent. Message content is either
// a plain string or a list of typed parts (text, image_url).
//
// Client performs three calls: Complete (JSON in, JSON out) for the refresh
// workers, Forward (raw body in, live response out) for proxied requests, and
// Models for the model listing passthrough.
package upstream
