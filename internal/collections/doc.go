// Package collections owns collection curation and the publish gate.
//
// Membership is (rule match ∪ pinned) − excluded. Qualification always
// counts members live and refreshes the cached published count as a side
// effect; the cache is never used to decide anything.
package collections
