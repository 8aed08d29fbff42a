// Package testutil contains helpers shared by tests: a fluent conversation
// builder, a concurrency probe and a behavioral contract every
// core.SessionStore must satisfy.
// It is not intended for production usage.
package testutil
