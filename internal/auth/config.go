package auth

// Config holds auth configuration. Auth is disabled when Secret is empty.
type Config struct {
	Secret string
	Issuer string // optional
}

// Enabled reports whether requests must carry a bearer token.
func (c Config) Enabled() bool {
	return c.Secret != ""
}
