/*
Package apierr is the error taxonomy shared by every component (C1-C7).
Lifecycle and coordinator code returns one of the concrete types here
rather than a bare fmt.Errorf; the HTTP layer calls HTTPStatus to decide a
response code and never inspects error strings to classify a failure.

ServiceStartFailed is the one non-fatal member: the installation
coordinator records it against a single service and keeps going, while
every other type aborts the operation it was returned from.
*/
package apierr
