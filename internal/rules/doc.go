// Package rules compiles collection matching rules into predicates.
//
// A Rule is a closed union of CuisineRule, RegionRule, TagRule and
// CompositeRule. Validate and Describe are pure; Compile resolves tag slugs
// through a TagResolver and produces a Predicate that renders to SQL for the
// store and evaluates in memory for dry runs and tests. Parts are combined
// with OR, pinned ids are always admitted and excluded ids always removed.
package rules
