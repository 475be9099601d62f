// Command certgen writes a local CA and a server certificate for running the
// catalog server with TLS_CERT/TLS_KEY. Pass the CA to the client with -ca.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/TalentKeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server names and IPs")
	flag.Parse()

	if err := run(*dir, splitHosts(*hosts)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run reuses an existing CA in dir so clients that already trust it keep
// working, and issues a fresh server certificate.
func run(dir string, hosts []string) error {
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")

	ca, err := certgen.Load(caCert, caKey)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load ca: %w", err)
		}
		if ca, err = certgen.NewCA("TalentKeeper local CA"); err != nil {
			return err
		}
		if err := ca.Write(caCert, caKey); err != nil {
			return err
		}
	}

	srv, err := certgen.IssueServer(ca, hosts)
	if err != nil {
		return err
	}
	return srv.Write(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
