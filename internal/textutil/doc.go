// Package textutil provides text helpers for recipe titles: slug generation
// with accent folding and whitespace normalization used by de-duplication.
package textutil
