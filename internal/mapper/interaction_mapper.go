package mapper

import (
	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/model"
)

type InteractionMapper struct{}

func NewInteractionMapper() *InteractionMapper {
	return &InteractionMapper{}
}

func (m *InteractionMapper) ToEntity(i *model.Interaction) *entity.Interaction {
	if i == nil {
		return nil
	}
	return &entity.Interaction{
		Id:        i.Id,
		Query:     i.Query,
		Answer:    i.Answer,
		Truncated: i.Truncated,
		CreatedAt: i.CreatedAt,
	}
}

func (m *InteractionMapper) ToModel(i *entity.Interaction) *model.Interaction {
	if i == nil {
		return nil
	}
	return &model.Interaction{
		Id:        i.Id,
		Query:     i.Query,
		Answer:    i.Answer,
		Truncated: i.Truncated,
		CreatedAt: i.CreatedAt,
	}
}

func (m *InteractionMapper) ToEntities(interactions []*model.Interaction) []*entity.Interaction {
	entities := make([]*entity.Interaction, len(interactions))
	for i, e := range interactions {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
