package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Bootstrap installs a jaeger tracer configured by the JAEGER_* environment variables
// as global tracer. The returned closer flushes pending spans.
func Bootstrap(serviceName string) (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaegerLogger{}))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	logrus.WithField("service", cfg.ServiceName).Info("tracer installed")
	return closer, nil
}

// jaegerLogger routes jaeger's own messages to logrus.
type jaegerLogger struct{}

func (jaegerLogger) Error(msg string) {
	logrus.Error(msg)
}

func (jaegerLogger) Infof(msg string, args ...interface{}) {
	logrus.Infof(msg, args...)
}
