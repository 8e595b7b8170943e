// Package content defines the domain records shared by the store, the
// executors and the control surface: recipes, collections, taxonomy,
// generation and translation jobs, translations and work-queue tasks.
package content
