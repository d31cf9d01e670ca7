/*
Package api implements the Control-Plane HTTP API (C7): every service,
install, history, health, and wizard endpoint over a single
http.ServeMux — construct once, mount /metrics alongside the rest, Start
blocks on ListenAndServe.

Handlers are thin: each one decodes its request, calls straight through to
the catalog, coordinator, history store, lifecycle engine, or wizard
service, and renders the result (or maps the returned error to a status
code via apierr.HTTPStatus). No handler holds business logic of its own.
*/
package api
