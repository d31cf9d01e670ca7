/*
Package health implements HTTP health-check polling used by the lifecycle
engine to decide when a freshly started container is ready to serve
traffic.

# Checker Interface

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

HTTPChecker is the only implementation Warden ships; the interface exists
so the lifecycle engine doesn't need to know the check mechanism, only
how to interpret a Result.

# Status tracking

Status implements hysteresis over repeated checks: a single failed probe
does not flip a service from healthy to unhealthy; only Retries
consecutive failures do. A single success marks the service healthy again
and resets the failure streak.
This absorbs the normal noise of a container settling during startup.
*/
package health
