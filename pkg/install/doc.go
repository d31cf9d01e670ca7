/*
Package install implements the Installation Coordinator (C4), the only
component that calls both the Lifecycle Engine (C3) and the Wizard State
Service (C6) for a single install run.

InstallServices serializes runs with Coordinator's mutex — a second call
while one is in flight gets apierr.InstallInProgress immediately rather
than queuing. A run never aborts partway: a failed service is recorded as
InstallError and the coordinator continues with the rest of the closure,
so one broken dependency doesn't block its unrelated siblings.

Wizard step statuses are recomputed from the History Store's install
bookkeeping after every per-service transition, following the fixed
role-to-step mapping in roleToStep, and a step's successor is advanced
from pending to in-progress as soon as that step's aggregate becomes
complete.
*/
package install
