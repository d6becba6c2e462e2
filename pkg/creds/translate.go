// Package creds builds the connection flags passed to mydumper and myloader.
package creds

import (
	"strings"
)

// SSLFlag enables TLS in mydumper and myloader. The mysql client implies it
// from any --ssl-* option, mydumper needs it spelled out.
const SSLFlag = "--ssl"

// tlsRenames maps mysql client TLS option prefixes to the mydumper names.
var tlsRenames = []struct{ from, to string }{
	{"--ssl-ca=", "--ca="},
	{"--ssl-capath=", "--capath="},
	{"--ssl-cert=", "--cert="},
	{"--ssl-cipher=", "--cipher="},
	{"--ssl-key=", "--key="},
}

// Translate rewrites mysql client TLS flags to their mydumper spelling.
// Every flag is rewritten independently (first matching prefix wins) and the
// order is kept. When at least one flag was rewritten SSLFlag is appended.
// The input slice is not modified.
func Translate(flags []string) []string {
	out := make([]string, 0, len(flags)+1)
	var sslEnabled bool
	for _, flag := range flags {
		for _, r := range tlsRenames {
			if strings.HasPrefix(flag, r.from) {
				flag = r.to + strings.TrimPrefix(flag, r.from)
				sslEnabled = true
				break
			}
		}
		out = append(out, flag)
	}
	if sslEnabled {
		out = append(out, SSLFlag)
	}
	return out
}
