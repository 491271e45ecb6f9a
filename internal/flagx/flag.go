// Package flagx splits os.Args between the config layers of shieldauth and
// shieldauth-server: the JSON layer reads only the config path, the flag
// layer only the names it registers.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// ConfigFlagNames are the spellings of the JSON config path flag.
var ConfigFlagNames = []string{"c", "config"}

// flagName returns the name an argument sets, with its inline value if any.
// ok is false for positionals, "-", "--" and three-dash tokens.
func flagName(arg string) (name, value string, inline, ok bool) {
	rest, found := strings.CutPrefix(arg, "-")
	if !found {
		return "", "", false, false
	}
	rest = strings.TrimPrefix(rest, "-")
	if rest == "" || strings.HasPrefix(rest, "-") {
		return "", "", false, false
	}
	name, value, inline = strings.Cut(rest, "=")
	return name, value, inline, true
}

// FilterArgs returns the args that set one of names, keeping order. A name
// matches with one or two dashes, either "-a x" or "--a=x". The token after a
// bare flag is taken as its value only when it does not start with "-".
func FilterArgs(args []string, names ...string) []string {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
		name, _, inline, ok := flagName(args[i])
		if !ok {
			continue
		}
		if _, keep := allowed[name]; !keep {
			continue
		}
		filtered = append(filtered, args[i])
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the JSON config path given in args, or "" when there is
// none. When the flag is repeated the last value wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range ConfigFlagNames {
		fs.StringVar(&path, n, "", "path to JSON config file")
	}
	_ = fs.Parse(FilterArgs(args, ConfigFlagNames...))

	return path
}
