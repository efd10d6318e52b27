package repository

const (
	DefaultPageLimit = 24
	MaxPageLimit     = 100
)

// PageVerify clamps a page limit into (0, MaxPageLimit].
func PageVerify(limit *int64) {
	if *limit <= 0 {
		*limit = DefaultPageLimit
	}
	if *limit > MaxPageLimit {
		*limit = MaxPageLimit
	}
}
