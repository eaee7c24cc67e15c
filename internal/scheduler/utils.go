package scheduler

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// InferNameFromFunc returns the bare name of f for logs: "RunRound" for a
// method value, "func1" for a closure.
func InferNameFromFunc(f any) string {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func {
		log.Warn().Msgf("Expected a function, got: %s", v.Kind())
		return "unknown"
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		log.Warn().Msgf("Could not retrieve function pointer for: %s", v.Type().String())
		return "unknown"
	}

	name := strings.TrimSuffix(fn.Name(), "-fm")
	return name[strings.LastIndexByte(name, '.')+1:]
}
