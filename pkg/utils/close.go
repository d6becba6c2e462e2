package utils

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// Closer is an interface for types that have a Close() method.
// This is compatible with io.Closer, *sql.DB, *sql.Rows and *sql.Conn.
type Closer interface {
	Close() error
}

// CloseAndLog closes a resource and logs any error. This is useful for defer statements
// where the error cannot be meaningfully handled except by logging.
// Example: defer utils.CloseAndLog(db)
func CloseAndLog(closer Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Error("deferred close failed", "error", err)
	}
}

// RemoveAndLog removes a file and logs any error other than the file
// already being gone.
func RemoveAndLog(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("deferred remove failed", "path", path, "error", err)
	}
}
