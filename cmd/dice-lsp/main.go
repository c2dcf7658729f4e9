// dice-lsp serves dice scripts to editors over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/dicescript/manifest"
	"github.com/chazu/dicescript/server"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}

	// stdout carries the protocol, so logs go to the configured file or stderr.
	var path *string
	if p := m.LogPath(); p != "" {
		path = &p
	}
	commonlog.Configure(m.Log.Verbosity, path)

	if err := server.NewLSP().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
