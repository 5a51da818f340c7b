package utils

import (
	"github.com/wandergrowth/leadmux/utils/dotenv"
	"github.com/wandergrowth/leadmux/utils/flag"
	Logger "github.com/wandergrowth/leadmux/utils/log"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// InitProfiler starts the Datadog profiler for this process.
func InitProfiler() {
	env := "development"
	if dotenv.IsProdEnv() {
		env = "production"
	}

	if err := profiler.Start(
		profiler.WithService(*flag.ServiceName),
		profiler.WithEnv(env),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
			// The profiles below are disabled by
			// default to keep overhead low, but
			// can be enabled as needed.
			// profiler.BlockProfile,
			// profiler.MutexProfile,
			// profiler.GoroutineProfile,
		),
	); err != nil {
		Logger.Log.Fatal(err)
	}
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
