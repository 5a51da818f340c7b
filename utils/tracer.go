package utils

import (
	"github.com/sirupsen/logrus"
	"github.com/wandergrowth/leadmux/utils/dotenv"
	"github.com/wandergrowth/leadmux/utils/flag"
	Logger "github.com/wandergrowth/leadmux/utils/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// InitTracer starts the Datadog tracer for this process.
func InitTracer() {
	env := "development"
	if dotenv.IsProdEnv() {
		env = "production"
	}

	tracer.Start(
		tracer.WithService(*flag.ServiceName),
		tracer.WithEnv(env),
	)

	Logger.Log.WithFields(
		logrus.Fields{"service": *flag.ServiceName},
	).Info("tracer initialized")
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
