// Package api exposes the pipeline's control surface over HTTP.
//
// Every response uses the same envelope: {"success":true,"data":...} on
// success and {"success":false,"error":{"code":...,"message":...}} on
// failure. Error codes are derived from the services error markers so the
// executors never deal with HTTP concerns. Routes live under /api/v1 and
// require a bearer token when api.token is configured; /metrics is served
// outside the authenticated group.
package api
