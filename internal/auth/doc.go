// Package auth is a local mock account store.
//
// Users are kept as a JSON array of {username, password} under the "users"
// key and the signed-in user under "currentUser". Passwords are compared as
// plain strings. Nothing here is meant to protect anything; the store only
// gates the dashboard behind a signed-in session.
package auth
