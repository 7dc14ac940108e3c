// Command objectstore serves the demo request handler over the Object Store
// API. It behaves like command kvstore, but opens the store named by --store
// among the object_stores of the configuration file.
package main // import "github.com/nicolagi/edgekv/cmd/objectstore"
