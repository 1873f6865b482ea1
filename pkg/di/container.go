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
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/dig"
)

// Container wraps dig.Container with Shelfline-specific helpers
type Container struct {
	*dig.Container
	mu sync.Mutex
}

// NewContainer creates a new dependency injection container using dig
func NewContainer() *Container {
	return &Container{
		Container: dig.New(),
	}
}

// ProvideValue registers a pre-built instance under its dynamic type.
// Untyped values cannot be expressed to dig, so the common scalar types are
// special-cased and everything else goes through a reflected constructor.
func (c *Container) ProvideValue(value interface{}) error {
	switch v := value.(type) {
	case string:
		return c.Provide(func() string { return v })
	case int:
		return c.Provide(func() int { return v })
	case bool:
		return c.Provide(func() bool { return v })
	case nil:
		return fmt.Errorf("cannot provide a nil value")
	default:
		return c.Container.Provide(supplier(value))
	}
}

// supplier builds a zero-argument constructor returning value with its dynamic type
func supplier(value interface{}) interface{} {
	t := reflect.TypeOf(value)
	fnType := reflect.FuncOf(nil, []reflect.Type{t}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.ValueOf(value)}
	}).Interface()
}

// MustProvide registers a constructor and panics on error (useful for initialization)
func (c *Container) MustProvide(constructor interface{}, opts ...dig.ProvideOption) {
	if err := c.Provide(constructor, opts...); err != nil {
		panic(fmt.Sprintf("failed to provide dependency: %v", err))
	}
}

// Invoke runs function with its arguments resolved from the graph. Calls are
// serialized because dig does not guard its own state.
func (c *Container) Invoke(function interface{}, opts ...dig.InvokeOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Container.Invoke(function, opts...)
}

// MustInvoke invokes a function and panics on error (useful for initialization)
func (c *Container) MustInvoke(function interface{}) {
	if err := c.Invoke(function); err != nil {
		panic(fmt.Sprintf("failed to invoke function: %v", err))
	}
}

// Decorate replaces a provided type with the result of decorator
func (c *Container) Decorate(decorator interface{}) error {
	return c.Container.Decorate(decorator)
}

// String returns a string representation of the container
func (c *Container) String() string {
	return fmt.Sprintf("ShelflineContainer{digContainer: %s}", c.Container.String())
}

// Resolve fetches a single typed instance from the container
func Resolve[T any](c *Container) (T, error) {
	var out T
	err := c.Invoke(func(v T) {
		out = v
	})
	return out, err
}
