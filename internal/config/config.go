// Package config reads server settings from flags, the environment and an
// optional .env file. Flags win over the environment, which wins over defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Commands accepted as the first positional argument.
const (
	CommandServe = "serve"
	CommandInit  = "init"
)

// Config holds everything the server needs to start.
type Config struct {
	Command     string
	DBPath      string
	Addr        string
	AdminEmail  string
	AdminName   string
	LogPath     string
	LogLevel    slog.Level
	BlobDir     string
	CORSOrigins []string
}

const usage = `Usage: assettrack [init|serve] [flags]

Commands:
  serve                   run the HTTP server (default)
  init                    create the database and first admin, then exit

Flags:
  -d, -db <path>          SQLite database path (default: assettrack.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <email>       admin email on first run (default: admin@localhost)
  -n, -name <name>        admin display name on first run (default: Admin)
  -b, -blob-dir <dir>     directory for asset images (default: images)
  -c, -cors-origins <list> comma-separated allowed CORS origins (default: none)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -v, -log-level <level>  debug, info, warn or error (default: info)
  -h, -help               show this help and exit

Every flag can also be set through the environment, for example
ASSETTRACK_DB or ASSETTRACK_ADDR. A .env file in the working directory is
read first if present.
`

// Load parses args (without the program name). envFile may be empty to skip
// reading a dotenv file; a missing file is not an error.
func Load(args []string, envFile string, out io.Writer) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	cfg := &Config{Command: CommandServe}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case CommandServe, CommandInit:
			cfg.Command = args[0]
			args = args[1:]
		default:
			fmt.Fprint(out, usage)
			return nil, fmt.Errorf("unknown command: %s", args[0])
		}
	}

	fset := flag.NewFlagSet("assettrack", flag.ContinueOnError)
	fset.SetOutput(out)
	fset.Usage = func() { fmt.Fprint(out, usage) }

	stringVar(fset, &cfg.DBPath, "db", "d", "ASSETTRACK_DB", "assettrack.sqlite3")
	stringVar(fset, &cfg.Addr, "addr", "a", "ASSETTRACK_ADDR", ":8080")
	stringVar(fset, &cfg.AdminEmail, "user", "u", "ASSETTRACK_ADMIN_EMAIL", "admin@localhost")
	stringVar(fset, &cfg.AdminName, "name", "n", "ASSETTRACK_ADMIN_NAME", "Admin")
	stringVar(fset, &cfg.BlobDir, "blob-dir", "b", "ASSETTRACK_BLOB_DIR", "images")
	stringVar(fset, &cfg.LogPath, "log", "l", "ASSETTRACK_LOG", "")

	var origins, level string
	stringVar(fset, &origins, "cors-origins", "c", "ASSETTRACK_CORS_ORIGINS", "")
	stringVar(fset, &level, "log-level", "v", "ASSETTRACK_LOG_LEVEL", "info")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		fmt.Fprint(out, usage)
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	cfg.CORSOrigins = splitList(origins)

	return cfg, nil
}

// stringVar registers a long and short flag sharing one value, defaulting to
// the environment variable env when it is set.
func stringVar(fset *flag.FlagSet, p *string, long, short, env, def string) {
	if v, ok := os.LookupEnv(env); ok {
		def = v
	}
	fset.StringVar(p, long, def, "")
	fset.StringVar(p, short, def, "")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
