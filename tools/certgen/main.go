// Package main generates a development Certificate Authority and a server
// certificate for the inventory API, writing them under a certs directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/atinyakov/FieldInventory/internal/certgen"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs for the server certificate")
	force := fs.Bool("force", false, "replace an existing server pair")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}

	if *force {
		p := certgen.PathsIn(*dir)
		_ = os.Remove(p.ServerCert)
		_ = os.Remove(p.ServerKey)
	}
	p, wrote, err := certgen.EnsureDevPair(*dir, names)
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Printf("Server pair already present: %s\n", p.ServerCert)
		return nil
	}
	fmt.Printf("Certificates generated into %s (trust %s on clients)\n", *dir, p.CACert)
	return nil
}
