package request

import "fmt"

// BuildReason classifies a build failure.
type BuildReason int

const (
	MissingRequiredField BuildReason = iota + 1
	UnresolvedPathParameter
)

func (r BuildReason) String() string {
	switch r {
	case MissingRequiredField:
		return "missing required field"
	case UnresolvedPathParameter:
		return "unresolved path parameter"
	}
	return fmt.Sprintf("BuildReason(%d)", int(r))
}

// BuildError reports input that cannot form a request.
type BuildError struct {
	Reason BuildReason
	Field  string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build request: %s %s", e.Reason, e.Field)
}
