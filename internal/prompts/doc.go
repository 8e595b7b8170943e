// Package prompts loads the YAML prompt templates used by the recipe
// generator and the translator.
package prompts
