// Command notecove-store is an operator-facing front end for the storage
// core: SD init and bootstrap, bytewise log/snapshot inspection, one-shot
// discovery and image-GC passes, move-record introspection, and an
// mcp-serve subcommand exposing read-only inspection tools over MCP, all
// driven against a real or in-memory Sync Directory.
package main

func main() {
	Execute()
}
