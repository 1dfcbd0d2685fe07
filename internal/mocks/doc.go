// Package mocks provides in-memory implementations of the store interfaces
// for service and handler tests. Each mock works out of the box with
// map-backed defaults and exposes Fn fields to override individual methods.
package mocks
