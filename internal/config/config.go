package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for costs and
// limits.
type Config struct {
	Env          string   // application environment (e.g. "dev", "prod")
	Port         string   // HTTP port to listen on
	DBUser       string   // database username
	DBPass       string   // database password (optional)
	DBHost       string   // database host address
	DBPort       string   // database port number
	ManagementDB string   // name of the management schema
	Sites        []string // tenant database names to serve
	DownloadRoot string   // root directory of downloaded media, per-identity subdirs
	BcryptCost   int      // bcrypt cost for host secret hashing
	ServerName   string   // name of this download server in the registry
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),                               // environment (dev/test/prod)
		Port:         must("APP_PORT"),                              // port to bind the HTTP server
		DBUser:       must("DB_USER"),                               // database user
		DBPass:       os.Getenv("DB_PASS"),                          // database password (empty allowed)
		DBHost:       must("DB_HOST"),                               // database host
		DBPort:       must("DB_PORT"),                               // database port
		ManagementDB: getenv("MANAGEMENT_DB", "management"),         // management schema name
		Sites:        parseList(getenv("SITES", "onlyfans,fansly")), // tenant schemas
		DownloadRoot: os.Getenv("DOWNLOAD_ROOT"),                    // local media root (empty disables file checks)
		BcryptCost:   mustInt("BCRYPT_COST"),                        // bcrypt cost factor
		ServerName:   getenv("SERVER_NAME", "home"),                 // registry name of this server
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// parseList splits a comma-separated variable into trimmed non-empty parts.
func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
