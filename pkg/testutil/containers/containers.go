//go:build integration

// Package containers starts the PostgreSQL and Kafka instances the
// integration suites run against. Each is started at most once per test
// binary, migrated or provisioned for this service, and then shared.
package containers

import (
	"sync"
	"testing"
)

// shared holds one lazily started container and the error from starting it,
// so every suite after a failed start fails fast with the same cause.
type shared[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (s *shared[T]) get(t *testing.T, start func() (T, error)) T {
	t.Helper()
	s.once.Do(func() {
		s.val, s.err = start()
	})
	if s.err != nil {
		t.Fatalf("integration container unavailable: %v", s.err)
	}
	return s.val
}

var (
	postgresOnce shared[*PostgresContainer]
	kafkaOnce    shared[*KafkaContainer]
)

// Postgres returns the shared database with the consents schema applied.
// Suites call TruncateAll between tests.
func Postgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return postgresOnce.get(t, startPostgres)
}

// Kafka returns the shared broker with the notifications topic created.
func Kafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return kafkaOnce.get(t, startKafka)
}
