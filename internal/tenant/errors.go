package tenant

import (
	"errors"
	"fmt"
)

// DependencyUnavailableError marks a failure of an external dependency that
// is expected to recover on its own, such as Postgres being unreachable.
// Callers retry these with backoff; any other error is treated as permanent.
type DependencyUnavailableError struct {
	Dependency string
	Err        error
}

func (e *DependencyUnavailableError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyUnavailableError) Unwrap() error {
	return e.Err
}

// IsDependencyUnavailable reports whether err is transient per the error
// taxonomy above.
func IsDependencyUnavailable(err error) bool {
	var depErr *DependencyUnavailableError
	return errors.As(err, &depErr)
}
