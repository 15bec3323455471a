package deepflow

import (
	"time"

	"github.com/petrijr/deepflow/pkg/api"
)

// EchoRunner returns {resourceId, query, output} for every action without
// contacting anything. It is the default runner.
var EchoRunner = api.EchoRunner

// RetryRunner wraps runner so that failed invocations are retried
// according to policy.
func RetryRunner(runner StepRunner, policy RetryPolicy) StepRunner {
	return api.RetryRunner(runner, policy)
}

// TimeoutRunner bounds every invocation of runner to d.
func TimeoutRunner(runner StepRunner, d time.Duration) StepRunner {
	return api.TimeoutRunner(runner, d)
}
