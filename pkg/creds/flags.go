package creds

import (
	"strconv"
	"strings"

	"github.com/block/mydump/pkg/config"
	"github.com/block/mydump/pkg/utils"
)

const passwordPrefix = "--password="

// Flags returns the mysql client style connection flags for conn that are
// safe to show in a process list. Only set fields produce a flag. User,
// password and socket are never included, see Prepare.
func Flags(conn config.Connection) []string {
	var flags []string
	add := func(name, value string) {
		if value != "" {
			flags = append(flags, "--"+name+"="+value)
		}
	}
	add("host", conn.Host)
	if conn.Port != 0 {
		add("port", strconv.Itoa(conn.Port))
	}
	add("database", conn.Database)
	add("ssl-ca", conn.SSLCA)
	add("ssl-capath", conn.SSLCAPath)
	add("ssl-cert", conn.SSLCert)
	add("ssl-cipher", conn.SSLCipher)
	add("ssl-key", conn.SSLKey)
	return flags
}

// Args are the connection arguments of one mydumper or myloader run. The
// secrets live in a temp option file that Remove deletes.
type Args struct {
	Flags []string
	file  *utils.TempFile
}

// Prepare builds the arguments for conn in mydumper/myloader spelling.
// A configured defaults file is passed as --defaults-file. User, password
// and socket given in the config itself are written to a [client] option
// file, readable by the owner only, passed as --defaults-extra-file.
// Both flags come first, as the mysql option parser requires.
func Prepare(conn config.Connection) (*Args, error) {
	explicit := conn.Explicit()
	var flags []string
	if conn.DefaultsFile != "" {
		flags = append(flags, "--defaults-file="+conn.DefaultsFile)
	}
	var lines []string
	for _, opt := range []struct{ name, value string }{
		{"user", explicit.User},
		{"password", explicit.Password},
		{"socket", explicit.Socket},
	} {
		if opt.value != "" {
			lines = append(lines, opt.name+" = "+quoteOptionValue(opt.value))
		}
	}
	args := &Args{}
	if len(lines) > 0 {
		file, err := utils.WriteTempFile("mydump-client-*.cnf", append(append([]string{"[client]"}, lines...), ""))
		if err != nil {
			return nil, err
		}
		args.file = file
		flags = append(flags, "--defaults-extra-file="+file.Path)
	}
	// values from the defaults file are left for the binaries to read
	args.Flags = append(flags, Translate(Flags(explicit))...)
	return args, nil
}

// OptionFile is the path of the temp option file, empty when none was needed.
func (a *Args) OptionFile() string {
	if a == nil || a.file == nil {
		return ""
	}
	return a.file.Path
}

// Remove deletes the option file. A nil *Args is a no-op.
func (a *Args) Remove() {
	if a == nil {
		return
	}
	a.file.Remove()
}

// quoteOptionValue quotes a value for a mysql option file, where an unquoted
// '#' starts a comment.
func quoteOptionValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(v) + `"`
}

// Redact returns a copy of args with password values masked, for logging.
func Redact(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if len(arg) > len(passwordPrefix) && strings.HasPrefix(arg, passwordPrefix) {
			arg = passwordPrefix + "***"
		}
		out[i] = arg
	}
	return out
}
