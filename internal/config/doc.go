// Package config defines the ordguard configuration structure.
//
// The structure splits into spec (shape), default (values), and verify
// (validation); the confloader package handles file and environment
// merging.
package config
