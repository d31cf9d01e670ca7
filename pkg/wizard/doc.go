/*
Package wizard implements the Wizard State Service (C6): the versioned,
four-step document an external setup UI polls and updates during
installation. All mutation paths (WriteState, ApplyUpdates, RecordBroadcast,
ResetStep, CompleteInstall) funnel through writeLocked, which normalizes
the document and persists it via KVStore before mirroring it into the
local bbolt Cache.

LoadState prefers the external store; on transport failure it falls back
to the cache's last-known-good copy rather than surfacing the error, so
callers keep seeing the last-known state on subsequent reads after a
write failure. HTTP callers that need the real error (to render 502) get
it from WriteState's return value instead.

ResolveOperation classifies a PUT /state body as a full replace or a
partial update before the API layer dispatches to WriteState or
ApplyUpdates.
*/
package wizard
