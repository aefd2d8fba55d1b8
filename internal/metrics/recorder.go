package metrics

type AttemptRecorder interface {
	ObserveAttempt(success bool)
}

type NoopAttemptRecorder struct{}

func (NoopAttemptRecorder) ObserveAttempt(success bool) {}
