/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package di

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered is returned when no factory is registered for an identifier
	ErrNotRegistered = errors.New("service not registered")

	// ErrDuplicateService is returned when an identifier is registered twice
	ErrDuplicateService = errors.New("service already registered")

	// ErrCircularDependency is returned when a factory requests a service that is still being built
	ErrCircularDependency = errors.New("circular dependency")

	// ErrTypeMismatch is returned when a resolved instance does not have the requested type
	ErrTypeMismatch = errors.New("unexpected service type")
)

// ConfigurationError reports a mandatory configuration value that is missing
// or unusable. Factories return it instead of building a degraded instance.
type ConfigurationError struct {
	// Service is the identifier of the service being constructed
	Service string

	// Key is the configuration key, in section.key form
	Key string

	// Message is the human readable description
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: missing configuration value %s", e.Service, e.Key)
}

// NewConfigurationError creates a configuration error for a service
func NewConfigurationError(service, key, message string) *ConfigurationError {
	return &ConfigurationError{Service: service, Key: key, Message: message}
}

// ResolutionError reports that an identifier could not be resolved by a locator.
type ResolutionError struct {
	Locator string
	ID      string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: resolving %q: %v", e.Locator, e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
