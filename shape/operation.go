package shape

import "fmt"

// Empty is the shape of operations without input or output members.
var Empty = MustNew("", nil)

// Operation binds an operation name to its HTTP route and its input and
// output shapes.
type Operation struct {
	Name   string
	Method string // defaults to POST
	Path   string // may contain {label} and {label+} placeholders
	Input  *Shape
	Output *Shape
}

// Validate checks that the operation can be routed.
func (o Operation) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("operation name is required")
	}
	if o.Path != "" && o.Path[0] != '/' {
		return fmt.Errorf("operation %s: path must start with /", o.Name)
	}
	return nil
}

// HTTPMethod returns the method, defaulting to POST.
func (o Operation) HTTPMethod() string {
	if o.Method == "" {
		return "POST"
	}
	return o.Method
}

// InputShape returns the input shape or Empty.
func (o Operation) InputShape() *Shape {
	if o.Input == nil {
		return Empty
	}
	return o.Input
}

// OutputShape returns the output shape or Empty.
func (o Operation) OutputShape() *Shape {
	if o.Output == nil {
		return Empty
	}
	return o.Output
}
