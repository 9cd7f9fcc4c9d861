// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"openhush/internal/log"
)

var logger = log.Component("transport")

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	logger.Infof("using logging transport")
	return &LoggingTransport{}
}

// Send logs data. Values that cannot be marshalled are logged with %+v.
func (lt *LoggingTransport) Send(data any) error {
	if log.GetLevel() > log.LevelDebug {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		logger.Debugf("%T %+v", data, data)
		return nil
	}
	logger.Debugf("%s", b)
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
