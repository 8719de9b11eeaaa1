package main

import "strings"

// shorthands are combined short flags that pflag cannot express because
// --delete has no single-letter form
var shorthands = map[string][]string{
	"-ud": {"-u", "--delete"},
}

// expandShorthands rewrites combined flags before cobra parses them.
// Arguments after "--" are left alone.
func expandShorthands(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if repl, ok := shorthands[strings.TrimSpace(arg)]; ok {
			out = append(out, repl...)
			continue
		}
		out = append(out, arg)
	}
	return out
}
