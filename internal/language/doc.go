// Package language canonicalizes BCP 47 target-language tags and renders
// them for operators.
package language
