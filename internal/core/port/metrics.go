package port

// LoginOutcome labels the result of a login attempt.
type LoginOutcome string

const (
	LoginSucceeded          LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginBlocked            LoginOutcome = "blocked"
	LoginFailed             LoginOutcome = "error"
)

// AuthMetrics records account flow outcomes.
type AuthMetrics interface {
	ObserveLogin(outcome LoginOutcome)
	ObserveRegistration(success bool)
	ObserveProfileCache(hit bool)
}

// NoopAuthMetrics discards every observation.
type NoopAuthMetrics struct{}

func (NoopAuthMetrics) ObserveLogin(LoginOutcome) {}
func (NoopAuthMetrics) ObserveRegistration(bool) {}
func (NoopAuthMetrics) ObserveProfileCache(bool) {}
