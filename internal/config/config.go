package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  Token signing material is loaded once at startup and treated
// as read-only afterwards; it is never reached through ambient globals.
type Config struct {
	Env                string // application environment (e.g. "dev", "prod")
	Port               string // HTTP port to listen on
	DBUser             string // database username
	DBPass             string // database password (optional)
	DBHost             string // database host address
	DBPort             string // database port number
	DBName             string // database name
	RefreshSecret      string // shared secret used to sign refresh tokens (HS256)
	PrivateKeyFile     string // path to the RSA private key PEM signing access tokens (RS256)
	JWTIssuer          string // issuer claim stamped on every token
	AccessTTLMin       int    // access token time-to-live in minutes
	RefreshTTLDays     int    // refresh token time-to-live in days
	BcryptCost         int    // bcrypt cost for password hashing
	CORSOrigin         string // allowed CORS origin (optional)
	SuperAdminEmail    string // bootstrap admin email (optional; skip bootstrap when empty)
	SuperAdminPassword string // bootstrap admin password
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                must("APP_ENV"),                     // environment (dev/test/prod)
		Port:               must("APP_PORT"),                    // port to bind the HTTP server
		DBUser:             must("DB_USER"),                     // database user
		DBPass:             os.Getenv("DB_PASS"),                // database password (empty allowed)
		DBHost:             must("DB_HOST"),                     // database host
		DBPort:             must("DB_PORT"),                     // database port
		DBName:             must("DB_NAME"),                     // database name
		RefreshSecret:      must("REFRESH_TOKEN_SECRET"),        // secret for refresh token signing
		PrivateKeyFile:     must("ACCESS_PRIVATE_KEY_FILE"),     // PEM file for access token signing
		JWTIssuer:          getenvDefault("JWT_ISSUER", "auth-service"),
		AccessTTLMin:       intDefault("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays:     intDefault("REFRESH_TOKEN_TTL_DAYS", 30),
		BcryptCost:         intDefault("BCRYPT_COST", 10),
		CORSOrigin:         os.Getenv("CORS_ORIGIN"),            // empty disables CORS handling
		SuperAdminEmail:    os.Getenv("SUPER_ADMIN_EMAIL"),      // empty skips the admin bootstrap
		SuperAdminPassword: os.Getenv("SUPER_ADMIN_PASSWORD"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// getenvDefault returns the variable's value or def when unset/empty.
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intDefault reads an integer variable, falling back to def when the
// variable is unset or unparsable.
func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
