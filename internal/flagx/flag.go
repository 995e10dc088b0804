// Package flagx lets several components share one command line: each parses
// only the flags it knows and ignores the rest.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only allowedFlags (and their values) from args. Both
// "-c conf.json" and "--config=conf.json" forms are recognised. A value is
// taken from the next argument unless it looks like another flag.
func FilterArgs(args []string, allowedFlags []string) []string {
	return filterArgs(args, allowedFlags, nil)
}

// ParseKnown parses into fs only the flags fs defines. Boolean flags never
// consume the following argument.
func ParseKnown(fs *flag.FlagSet, args []string) error {
	var allowed, bools []string
	fs.VisitAll(func(f *flag.Flag) {
		names := []string{"-" + f.Name, "--" + f.Name}
		allowed = append(allowed, names...)
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			bools = append(bools, names...)
		}
	})
	return fs.Parse(filterArgs(args, allowed, bools))
}

// JsonConfigFlags returns the path given by -c or -config, or "".
func JsonConfigFlags() string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = ParseKnown(fs, os.Args[1:])

	return config
}

func filterArgs(args, allowedFlags, boolFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}
	isBool := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		isBool[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if _, ok := isBool[arg]; ok {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}
