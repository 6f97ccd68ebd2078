package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/repository/contract"
	"kernel-workspace-be/pkg/llm"
)

const DefaultLimit = 5

var ErrEmptyInteraction = errors.New("interaction has no query or answer")

// Store is the conversation memory: an append-only log of question/answer
// pairs of which only the most recent few are ever fed back to the model.
type Store struct {
	repo  contract.InteractionRepository
	limit int
}

func NewStore(repo contract.InteractionRepository, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{repo: repo, limit: limit}
}

func (s *Store) Append(ctx context.Context, query, answer string, truncated bool) (*entity.Interaction, error) {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyInteraction
	}

	interaction := &entity.Interaction{
		Query:     query,
		Answer:    answer,
		Truncated: truncated,
	}
	if err := s.repo.Append(ctx, interaction); err != nil {
		return nil, fmt.Errorf("append interaction: %w", err)
	}
	return interaction, nil
}

// Recent returns up to the configured number of interactions, oldest first.
func (s *Store) Recent(ctx context.Context) ([]*entity.Interaction, error) {
	interactions, err := s.repo.FindRecent(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load recent interactions: %w", err)
	}
	return interactions, nil
}

// RecentMessages loads recent history as alternating user/assistant
// messages, oldest first, ready to sit between the system message and the
// new user query.
func (s *Store) RecentMessages(ctx context.Context) ([]llm.Message, error) {
	interactions, err := s.Recent(ctx)
	if err != nil {
		return nil, err
	}
	return ToMessages(interactions), nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear interactions: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count interactions: %w", err)
	}
	return n, nil
}

func ToMessages(interactions []*entity.Interaction) []llm.Message {
	messages := make([]llm.Message, 0, len(interactions)*2)
	for _, in := range interactions {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: in.Query},
			llm.Message{Role: llm.RoleAssistant, Content: in.Answer},
		)
	}
	return messages
}
