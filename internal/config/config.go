package config

// Port is the HTTP listen port.
func Port() string {
	return getEnv("PORT", "5000")
}

// FrontendURL is the CORS origin allowed to call the API.
func FrontendURL() string {
	return getEnv("FRONTEND_URL", "http://localhost:3000")
}
