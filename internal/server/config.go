package server

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	CacheTTLSeconds int
}

func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		CacheTTLSeconds: 30,
	}
}
