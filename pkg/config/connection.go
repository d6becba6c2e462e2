package config

import (
	"strconv"

	"github.com/go-ini/ini"
)

// Connection describes how to reach one database.
type Connection struct {
	Driver       string `yaml:"driver"` // mysql (default); anything else is rejected
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Socket       string `yaml:"socket"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	DefaultsFile string `yaml:"defaults_file"` // my.cnf style file with a [client] section

	SSLCA     string `yaml:"ssl_ca"`
	SSLCAPath string `yaml:"ssl_capath"`
	SSLCert   string `yaml:"ssl_cert"`
	SSLCipher string `yaml:"ssl_cipher"`
	SSLKey    string `yaml:"ssl_key"`

	// explicit is the connection as written in the config, before the
	// defaults file filled it.
	explicit *Connection
}

// Explicit returns the connection as written in the config, without the
// values taken from DefaultsFile. mydumper and myloader read that file
// themselves.
func (c Connection) Explicit() Connection {
	if c.explicit == nil {
		return c
	}
	return *c.explicit
}

// Backend returns the backend selected by Driver.
func (c Connection) Backend() Backend {
	return ParseBackend(c.Driver)
}

// HasTLS is true when any TLS setting is present.
func (c Connection) HasTLS() bool {
	return c.SSLCA != "" || c.SSLCAPath != "" || c.SSLCert != "" || c.SSLCipher != "" || c.SSLKey != ""
}

// Backend is the kind of database server behind a connection.
type Backend int

const (
	BackendUnknown Backend = iota
	BackendMySQL
	BackendPostgreSQL
	BackendSQLite
)

// String returns the string representation of the backend
func (b Backend) String() string {
	switch b {
	case BackendMySQL:
		return "mysql"
	case BackendPostgreSQL:
		return "pgsql"
	case BackendSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// Supported is true only for MySQL, mydumper does not speak anything else.
func (b Backend) Supported() bool {
	return b == BackendMySQL
}

// ParseBackend parses a driver name. An empty name means mysql.
func ParseBackend(s string) Backend {
	switch s {
	case "", "mysql":
		return BackendMySQL
	case "pgsql", "postgres", "postgresql":
		return BackendPostgreSQL
	case "sqlite", "sqlite3":
		return BackendSQLite
	default:
		return BackendUnknown
	}
}

// confParams abstracts parameters loaded from the [client] section of an
// ini file.
type confParams struct {
	host, socket, database, user string
	sslCA, sslCAPath, sslCert    string
	sslCipher, sslKey            string
	password                     *string
	port                         int
}

// newConfParams loads a confParams struct from a path to an ini file.
func newConfParams(confFilePath string) (*confParams, error) {
	params := &confParams{}
	creds, err := ini.Load(confFilePath)
	if err != nil {
		return nil, err
	}
	if !creds.HasSection("client") {
		return params, nil
	}
	client := creds.Section("client")
	params.host = client.Key("host").String()
	params.socket = client.Key("socket").String()
	params.database = client.Key("database").String()
	params.user = client.Key("user").String()
	params.sslCA = client.Key("ssl-ca").String()
	params.sslCAPath = client.Key("ssl-capath").String()
	params.sslCert = client.Key("ssl-cert").String()
	params.sslCipher = client.Key("ssl-cipher").String()
	params.sslKey = client.Key("ssl-key").String()
	params.port = client.Key("port").MustInt()
	if client.HasKey("password") {
		pw := client.Key("password").String()
		params.password = &pw
	}
	return params, nil
}

// fill returns conn with every empty field taken from the ini file.
func (p *confParams) fill(conn Connection) Connection {
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&conn.Host, p.host)
	set(&conn.Socket, p.socket)
	set(&conn.Database, p.database)
	set(&conn.User, p.user)
	set(&conn.SSLCA, p.sslCA)
	set(&conn.SSLCAPath, p.sslCAPath)
	set(&conn.SSLCert, p.sslCert)
	set(&conn.SSLCipher, p.sslCipher)
	set(&conn.SSLKey, p.sslKey)
	if conn.Password == "" && p.password != nil {
		conn.Password = *p.password
	}
	if conn.Port == 0 {
		conn.Port = p.port
	}
	return conn
}

// Address returns host:port, using the MySQL default port when none is set.
func (c Connection) Address() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return host + ":" + strconv.Itoa(port)
}
