package implementation

import (
	"context"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/mapper"
	"kernel-workspace-be/internal/model"
	"kernel-workspace-be/internal/repository/contract"
	"kernel-workspace-be/internal/repository/specification"

	"gorm.io/gorm"
)

type InteractionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InteractionMapper
}

func NewInteractionRepository(db *gorm.DB) contract.InteractionRepository {
	return &InteractionRepositoryImpl{
		db:     db,
		mapper: mapper.NewInteractionMapper(),
	}
}

func (r *InteractionRepositoryImpl) Append(ctx context.Context, interaction *entity.Interaction) error {
	m := r.mapper.ToModel(interaction)
	m.Id = 0
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*interaction = *r.mapper.ToEntity(m)
	return nil
}

func (r *InteractionRepositoryImpl) FindRecent(ctx context.Context, limit int) ([]*entity.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}

	var models []*model.Interaction
	query := specification.Apply(r.db.WithContext(ctx), specification.Newest(limit))
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	// Newest first from the query; callers want chronological order
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return r.mapper.ToEntities(models), nil
}

func (r *InteractionRepositoryImpl) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Interaction{}).Error
}

func (r *InteractionRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Interaction{}).Count(&count).Error
	return count, err
}
