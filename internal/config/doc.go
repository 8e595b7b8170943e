// Package config holds the recipeforge settings tree.
//
// Load reads a TOML file (or the first one found on the default search
// path), layers RECIPEFORGE_* and OPENROUTER_API_KEY environment overrides on
// top of Default, expands "~" in paths and runs Validate. Redacted returns a
// copy that is safe to print.
package config
