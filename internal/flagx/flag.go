// Package flagx contains helpers for parsing a subset of command-line flags
// without interfering with flags owned by other components.
package flagx

import (
	"flag"
	"strings"
)

// Pick returns the arguments belonging to the named flags, in their original
// order. A flag may appear as "-f value" or as "--flag=value"; in the first
// form the following argument is kept as the value unless it looks like
// another flag. Everything else is dropped.
func Pick(args []string, names ...string) []string {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var picked []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, hasValue := strings.Cut(arg, "="); hasValue && strings.HasPrefix(arg, "-") {
			if _, ok := wanted[name]; ok {
				picked = append(picked, arg)
			}
			continue
		}

		if _, ok := wanted[arg]; !ok {
			continue
		}
		picked = append(picked, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			picked = append(picked, args[i+1])
			i++
		}
	}
	return picked
}

// ConfigFile extracts the JSON config file path given via -c or -config.
// Only these flags are parsed; anything else in args is ignored, so the
// lookup is safe to run before the main flag set is defined. Returns an
// empty string when neither flag is present.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(Pick(args, "-c", "-config", "--config"))

	return path
}
