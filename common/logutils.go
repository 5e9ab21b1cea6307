package common

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}
	logger.AddHook(&DefaultFieldsHook{})
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = GetServiceName()
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}

// GetServiceName SERVICE_NAME, default "teamflow"
func GetServiceName() string {
	return EnvOrDefault("SERVICE_NAME", "teamflow")
}

// GetServiceInstance SERVICE_INSTANCE, default to host name
func GetServiceInstance() string {
	if instance := os.Getenv("SERVICE_INSTANCE"); instance != "" {
		return instance
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
