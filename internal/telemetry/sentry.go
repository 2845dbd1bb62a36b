// Package telemetry forwards errors to Sentry when a DSN is configured. With
// no DSN every function here is a no-op.
package telemetry

import (
	"runtime"
	"sync/atomic"
	"time"

	gosentry "github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Init configures the Sentry SDK. An empty dsn disables reporting.
func Init(dsn, version string) error {
	if dsn == "" {
		enabled.Store(false)
		return nil
	}
	return initWith(gosentry.ClientOptions{
		Dsn:              dsn,
		Release:          "taskpilot@" + version,
		AttachStacktrace: true,
		SampleRate:       1.0,
	}, version)
}

func initWith(opts gosentry.ClientOptions, version string) error {
	if err := gosentry.Init(opts); err != nil {
		return err
	}
	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("version", version)
	})
	enabled.Store(true)
	return nil
}

// Enabled reports whether events are being sent.
func Enabled() bool {
	return enabled.Load()
}

// Flush waits up to 2 seconds for buffered events to be sent.
func Flush() {
	if !Enabled() {
		return
	}
	gosentry.Flush(2 * time.Second)
}

// CaptureError sends err as an exception event.
func CaptureError(err error) {
	if err == nil || !Enabled() {
		return
	}
	gosentry.CaptureException(err)
}

// SetSession tags every later event with the client session id and endpoints.
func SetSession(sessionID, chatURL, apiURL string) {
	if !Enabled() {
		return
	}
	gosentry.ConfigureScope(func(scope *gosentry.Scope) {
		scope.SetTag("session_id", sessionID)
		scope.SetContext("endpoints", map[string]interface{}{
			"chat_url": chatURL,
			"api_url":  apiURL,
		})
	})
}
