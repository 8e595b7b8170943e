// Package testsupport provides shared fixtures for package tests: isolated
// configs, opened stores on a deterministic clock, and seed helpers.
package testsupport
