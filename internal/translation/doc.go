// Package translation creates and executes translation jobs. A job produces
// one target-language variant of one entity; creation is idempotent per
// (entity type, entity id, language) while a job is pending or processing.
// Translated fields are merged over the source so a field the translator
// omits keeps its source value.
package translation
