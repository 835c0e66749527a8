// Package web exposes a login hub over HTTP.
//
// The Server wraps a loginhub.Backend with JSON/form endpoints for
// signup, login, logout, password reset and session inspection, plus an
// optional hand-off to the hub's federated providers:
//
//	POST /auth/signup
//	POST /auth/login
//	POST /auth/logout
//	POST /auth/forgot-password
//	POST /auth/reset-password
//	GET  /auth/session
//	GET  /auth/{provider}/start
//
// Server side sessions use alexedwards/scs; a successful login also
// mints an HS256 JWT set as a cookie so API clients can authenticate
// with a bearer token instead.
//
//	backend := loginhub.NewLocalBackend(...)
//	srv := web.NewServer("MyApp", backend)
//	http.ListenAndServe(":8080", srv.Handler())
package web
