package contract

import (
	"context"

	"kernel-workspace-be/internal/entity"
)

// InteractionRepository is the append-only conversation log.
type InteractionRepository interface {
	// Append assigns the next sequence id and CreatedAt to interaction.
	Append(ctx context.Context, interaction *entity.Interaction) error
	// FindRecent returns at most limit interactions, oldest first.
	FindRecent(ctx context.Context, limit int) ([]*entity.Interaction, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}
