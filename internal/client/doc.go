// Package client talks to the recipeforge HTTP control surface.
//
// It hides the {success, data | error} envelope: successful calls decode
// data into typed results, failures surface as *APIError carrying the
// machine-readable code.
package client
