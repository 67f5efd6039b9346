// Package proxy is the per-request pipeline in front of the upstream
// chat-completion API.
//
// A request is decoded, its inline images are captioned in fixed-size
// batches, every text segment is resolved through the template engine, and
// the rewritten request is forwarded. The upstream response is relayed to
// the caller byte for byte while a copy is reconstructed; once the stream
// ends, any diary block in the reply is saved in the background.
//
// Only a failure to reach the upstream service for the forwarded request is
// visible to the caller. Caption, template and diary problems are logged.
package proxy
