// Package validation wraps a shared go-playground validator with the
// project's custom tags and converts failures into errors that classify as
// services.ErrValidation.
package validation
