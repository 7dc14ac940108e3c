// Command kvstore serves the demo request handler over the KV Store API.
//
// A GET of /readme returns the value of the key "readme" in the KV store, or
// 404. Any other request upserts "hello" = "world" and reads it back. KV stores
// are eventually consistent, so that read may return 404 for a while.
//
// The KV store named by --store (default "my-store") must be listed under
// kv_stores in the configuration file. The value of FASTLY_SERVICE_VERSION,
// if set, is logged on every request.
package main // import "github.com/nicolagi/edgekv/cmd/kvstore"
