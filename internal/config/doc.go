// Package config defines the format-agnostic configuration model for the
// application: process settings plus an optional seed design, along with the
// Loader interface implemented per file format.
//
// Concrete loaders (hclconfig, yamlconfig) translate their files into a
// Model; defaults and validation live here so every format behaves the same.
package config
