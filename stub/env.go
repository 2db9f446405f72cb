package stub

import (
	"runtime"
	"strings"
)

// ExecutableEnv names the variable through which the child learns the path
// of the packaged executable.
const ExecutableEnv = "STUBPACK_EXECUTABLE"

// setEnv returns env with name set to value. An empty value removes name.
func setEnv(env []string, name, value string) []string {
	out := env[:0:0]
	for _, kv := range env {
		k, _, _ := strings.Cut(kv, "=")
		if envKeyEqual(k, name) {
			continue
		}
		out = append(out, kv)
	}
	if value == "" {
		return out
	}
	return append(out, name+"="+value)
}

// envKeyEqual compares variable names the way the OS does.
func envKeyEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
