// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

// Configuration is raised when required settings are missing or invalid.
// It is fatal and never retried.
type Configuration struct {
	base
}

// Error returns the error message for Configuration.
func (c Configuration) Error() string {
	return c.error()
}

// NewConfiguration creates a new Configuration error with the provided message.
func NewConfiguration(message string, err ...error) Configuration {
	return Configuration{base: newBase(message, err...)}
}

// Directory is raised when the membership directory cannot be reached or read.
type Directory struct {
	base
}

// Error returns the error message for Directory.
func (d Directory) Error() string {
	return d.error()
}

// NewDirectory creates a new Directory error with the provided message.
func NewDirectory(message string, err ...error) Directory {
	return Directory{base: newBase(message, err...)}
}

// Target is raised when the forwarding target fails to connect, read, mutate or save.
type Target struct {
	base
}

// Error returns the error message for Target.
func (t Target) Error() string {
	return t.error()
}

// NewTarget creates a new Target error with the provided message.
func NewTarget(message string, err ...error) Target {
	return Target{base: newBase(message, err...)}
}
