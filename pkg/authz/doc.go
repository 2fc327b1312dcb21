/*
Package authz decides allow/deny for one request, given a Requester and a
declared Context. It never caches: every check re-reads the current
graph and the requester's token scope, because permissions can change
between two requests from the same connection.
*/
package authz
