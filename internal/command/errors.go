// ABOUTME: Error types for schema validation and invocation resolution
// ABOUTME: SchemaError is fatal at startup; the others are reported to the invoking user

package command

import "fmt"

// SchemaError reports an invalid command declaration.
type SchemaError struct {
	// Path is the dotted path of the offending node, as far as it is known.
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "invalid command schema: " + e.Reason
	}
	return fmt.Sprintf("invalid command schema at '%s': %s", e.Path, e.Reason)
}

// UnknownCommandError reports a path that names no invocable command.
type UnknownCommandError struct {
	Path string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Path)
}

// ArgumentProblem classifies an ArgumentError.
type ArgumentProblem int

const (
	// ProblemType means the value does not coerce to the declared type.
	ProblemType ArgumentProblem = iota
	// ProblemMissing means a required argument was not supplied.
	ProblemMissing
	// ProblemUnknown means the argument is not declared by the command.
	ProblemUnknown
	// ProblemChoice means the value is not one of the declared choices.
	ProblemChoice
	// ProblemNoValue means a flag was given without a value.
	ProblemNoValue
)

// ArgumentError reports a bad, missing or unexpected argument.
type ArgumentError struct {
	Name     string
	Expected string
	Got      string
	Problem  ArgumentProblem
}

func (e *ArgumentError) Error() string {
	switch e.Problem {
	case ProblemMissing:
		return fmt.Sprintf("missing required argument '%s' (%s)", e.Name, e.Expected)
	case ProblemUnknown:
		if e.Name == "" {
			return fmt.Sprintf("unexpected argument '%s'", e.Got)
		}
		return fmt.Sprintf("unknown argument '%s'", e.Name)
	case ProblemChoice:
		return fmt.Sprintf("argument '%s' must be one of %s, got '%s'", e.Name, e.Expected, e.Got)
	case ProblemNoValue:
		return fmt.Sprintf("argument '%s' needs a value", e.Name)
	default:
		return fmt.Sprintf("argument '%s' expects %s, got '%s'", e.Name, e.Expected, e.Got)
	}
}
