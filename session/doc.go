// Package session keeps typed per-caller state (subject, upstream login
// token) keyed by session id. Expiry is explicit: a Manager hides expired
// sessions from Get and removes them when Sweep runs.
package session
