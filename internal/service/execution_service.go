package service

import (
	"context"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/events"
	"kernel-workspace-be/pkg/sandbox"
)

type IExecutionService interface {
	Execute(ctx context.Context, req *dto.ExecuteRequest) *dto.ExecuteResponse
}

type executionService struct {
	executor  *sandbox.Executor
	publisher events.Publisher
	logger    logger.ILogger
}

func NewExecutionService(executor *sandbox.Executor, publisher events.Publisher, log logger.ILogger) IExecutionService {
	return &executionService{
		executor:  executor,
		publisher: publisher,
		logger:    log,
	}
}

// Execute never fails at the transport level: compile errors, runtime errors
// and timeouts are all reported in the response.
func (s *executionService) Execute(ctx context.Context, req *dto.ExecuteRequest) *dto.ExecuteResponse {
	lang, err := sandbox.ParseLanguage(req.Language)
	if err != nil {
		return &dto.ExecuteResponse{
			Status: string(sandbox.StatusError),
			Output: err.Error(),
			Kind:   string(sandbox.KindInvalid),
		}
	}

	res := s.executor.Execute(ctx, sandbox.Request{Code: req.Code, Language: lang})

	emit(ctx, s.publisher, s.logger, events.CodeExecuted, map[string]interface{}{
		"language": string(lang),
		"status":   string(res.Status),
		"kind":     string(res.Kind),
	})
	return &dto.ExecuteResponse{
		Status: string(res.Status),
		Output: res.Output,
		Kind:   string(res.Kind),
	}
}
