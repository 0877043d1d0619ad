package service

import "github.com/google/uuid"

// UUIDGenerator generates unique identifiers
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

var _ UUIDGenerator = (*DefaultUUIDGenerator)(nil)
