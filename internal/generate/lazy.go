package generate

// Lazy defers computing a placeholder value until a template actually refers
// to it, and memoizes the result so side effects (like taking an increment)
// happen at most once per value.
type Lazy struct {
	fn    func() string
	done  bool
	value string
}

// NewLazy wraps a computation.
func NewLazy(fn func() string) *Lazy {
	return &Lazy{fn: fn}
}

// Value forces the computation on first call and returns the memoized result
// afterwards.
func (l *Lazy) Value() string {
	if !l.done {
		l.value = l.fn()
		l.done = true
	}
	return l.value
}

// Forced reports whether the value has been computed.
func (l *Lazy) Forced() bool { return l.done }
