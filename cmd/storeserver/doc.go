// Command storeserver exposes one storage backend over HTTP, to be used
// together with its client, storage.RemoteStore. Configure the backend under
// "store" in the configuration file, and point a "remote" store of the kvstore
// or objectstore commands at the server's address to share a store between
// several instances.
//
// See storage.NewRemoteHandler for the protocol.
package main // import "github.com/nicolagi/edgekv/cmd/storeserver"
