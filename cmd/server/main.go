// Package main is the entry point for the homelab-remote server and CLI.
package main

import "os"

func main() {
	os.Exit(execute())
}
