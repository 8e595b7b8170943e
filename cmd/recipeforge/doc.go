// Command recipeforge is the operator CLI for the recipeforge daemon.
//
// It starts and stops the daemon, submits generation and translation jobs,
// controls running jobs and drives the collection publish gate. Commands
// talk to the daemon over its HTTP API; list and show commands accept
// --json for machine-readable output.
package main
