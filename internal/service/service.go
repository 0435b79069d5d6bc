// Package service implements the response orchestrator: it validates chat
// requests, retrieves passages, composes the prompt, calls the generator
// and persists the conversation.
package service

import (
	"context"

	"github.com/Habibullahdevv/ai-native-book/internal/adapter/llm"
	"github.com/Habibullahdevv/ai-native-book/internal/config"
	"github.com/Habibullahdevv/ai-native-book/internal/domain"
	"github.com/Habibullahdevv/ai-native-book/internal/rag"
	"github.com/Habibullahdevv/ai-native-book/internal/repository"
	"github.com/Habibullahdevv/ai-native-book/policy"
)

// Composer builds the generation prompt. It returns the passages the
// prompt actually cites, which may be fewer than it was given.
type Composer interface {
	Compose(query string, passages []domain.Passage, selectedText *string) (string, []domain.Passage)
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type Service struct {
	store        repository.Store
	retriever    rag.Retriever
	composer     Composer
	generator    llm.Generator
	config       *config.Config
	policyEngine *policy.Engine

	checks      map[string]HealthCheck
	connections func() int
}

func New(store repository.Store, retriever rag.Retriever, composer Composer, generator llm.Generator, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		retriever:    retriever,
		composer:     composer,
		generator:    generator,
		config:       cfg,
		policyEngine: policyEngine,
		checks:       make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency probe reported by Health.
func (s *Service) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// SetConnectionCounter sets the source of the live connection count
// reported by Health.
func (s *Service) SetConnectionCounter(count func() int) {
	s.connections = count
}
