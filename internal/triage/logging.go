package triage

import "fmt"

// logInfo logs at INFO level to both local logger and cloud logger
func (e *Engine) logInfo(format string, args ...interface{}) {
	msg := e.sanitize(fmt.Sprintf(format, args...))
	e.logger.Printf("%s", msg)
	if e.cloudLogger != nil {
		e.cloudLogger.LogInfo(msg)
	}
}

// logWarning logs at WARNING level to both local logger and cloud logger
func (e *Engine) logWarning(format string, args ...interface{}) {
	msg := e.sanitize(fmt.Sprintf(format, args...))
	e.logger.Printf("Warning: %s", msg)
	if e.cloudLogger != nil {
		e.cloudLogger.LogWarning(msg)
	}
}

// logError logs at ERROR level to both local logger and cloud logger
func (e *Engine) logError(format string, args ...interface{}) {
	msg := e.sanitize(fmt.Sprintf(format, args...))
	e.logger.Printf("Error: %s", msg)
	if e.cloudLogger != nil {
		e.cloudLogger.LogError(msg)
	}
}

func (e *Engine) sanitize(msg string) string {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	return e.sanitizer.Sanitize(msg)
}

// addSecrets registers a session's credentials so they are redacted even
// when they match none of the built-in patterns.
func (e *Engine) addSecrets(creds Credentials) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.sanitizer.AddSecret(creds.Token)
	e.sanitizer.AddSecret(creds.APIKey)
}
