package config

import "fmt"

// UsageError reports an invocation that can not be carried out as asked:
// an unsupported option, an unsupported backend or an unknown key.
// Nothing has been run when it is returned.
type UsageError struct {
	msg string
}

func (e *UsageError) Error() string {
	return e.msg
}

// Usagef returns a *UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{msg: fmt.Sprintf(format, args...)}
}
