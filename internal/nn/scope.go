package nn

// Scope builds hierarchical parameter names such as
// "Reader/BiDirAttnFlow/w_sim1". The zero value is the root scope.
type Scope struct {
	path string
}

// NewScope returns a top-level scope.
func NewScope(name string) Scope {
	return Scope{}.Sub(name)
}

// Sub returns a nested scope.
func (s Scope) Sub(name string) Scope {
	return Scope{path: s.Name(name)}
}

// Name returns the full name of a parameter in this scope.
func (s Scope) Name(name string) string {
	switch {
	case name == "":
		return s.path
	case s.path == "":
		return name
	default:
		return s.path + "/" + name
	}
}

// String returns the scope path.
func (s Scope) String() string {
	return s.path
}
