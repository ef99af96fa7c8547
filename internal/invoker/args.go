package invoker

// ParseArgs validates an untyped argument list, typically one decoded from
// JSON, and returns it as a []string. Non-sequences, non-string elements
// and empty lists are rejected with an *ArgumentError.
func ParseArgs(v any) ([]string, error) {
	var args []string
	switch t := v.(type) {
	case []string:
		args = append(args, t...)
	case []any:
		args = make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, errNotStrings
			}
			args = append(args, s)
		}
	default:
		return nil, errNotStrings
	}
	if err := checkArgs(args); err != nil {
		return nil, err
	}
	return args, nil
}

var (
	errNotStrings = &ArgumentError{Reason: "'args' must be a string array"}
	errNoArgs     = &ArgumentError{Reason: "'args' must not be empty"}
)

func checkArgs(args []string) error {
	if len(args) == 0 {
		return errNoArgs
	}
	return nil
}
