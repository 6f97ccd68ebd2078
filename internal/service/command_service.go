package service

import (
	"context"
	"errors"
	"net/http"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/approval"
	"kernel-workspace-be/pkg/events"
)

// CommandError carries an approval failure together with its HTTP status.
type CommandError struct {
	Err error
}

func (e *CommandError) Error() string {
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) StatusCode() int {
	switch {
	case errors.Is(e.Err, approval.ErrNothingStaged):
		return http.StatusConflict
	case errors.Is(e.Err, approval.ErrDisabled), errors.Is(e.Err, approval.ErrNotAllowed):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

type ICommandService interface {
	Request(ctx context.Context, req *dto.RequestCommandRequest) (*dto.RequestCommandResponse, error)
	Approve(ctx context.Context) (*dto.ApproveCommandResponse, error)
	Cancel(ctx context.Context) bool
}

type commandService struct {
	session   *Session
	publisher events.Publisher
	logger    logger.ILogger
}

func NewCommandService(session *Session, publisher events.Publisher, log logger.ILogger) ICommandService {
	return &commandService{
		session:   session,
		publisher: publisher,
		logger:    log,
	}
}

// Request stages a command. Nothing runs until Approve.
func (s *commandService) Request(ctx context.Context, req *dto.RequestCommandRequest) (*dto.RequestCommandResponse, error) {
	pending, err := s.session.Approval.Stage(req.Question)
	if err != nil {
		return nil, &CommandError{Err: err}
	}

	emit(ctx, s.publisher, s.logger, events.CommandStaged, map[string]interface{}{
		"command": pending.Text,
	})
	return &dto.RequestCommandResponse{
		Status:   "staged",
		Command:  pending.Text,
		StagedAt: pending.StagedAt,
	}, nil
}

// Approve runs the staged command. A non-zero exit is reported in the
// response, not as an error.
func (s *commandService) Approve(ctx context.Context) (*dto.ApproveCommandResponse, error) {
	out, err := s.session.Approval.Approve(ctx)
	if err != nil {
		return nil, &CommandError{Err: err}
	}

	emit(ctx, s.publisher, s.logger, events.CommandExecuted, map[string]interface{}{
		"command":     out.Command,
		"status":      out.Status,
		"exit_code":   out.ExitCode,
		"timed_out":   out.TimedOut,
		"duration_ms": out.Duration.Milliseconds(),
	})
	return &dto.ApproveCommandResponse{
		Status:     out.Status,
		Command:    out.Command,
		Output:     out.Output,
		ExitCode:   out.ExitCode,
		TimedOut:   out.TimedOut,
		DurationMs: out.Duration.Milliseconds(),
	}, nil
}

// Cancel drops the staged command. It reports whether one was staged.
func (s *commandService) Cancel(ctx context.Context) bool {
	pending, ok := s.session.Approval.Pending()
	s.session.Approval.Reset()
	if ok {
		s.logger.Info("Approval", "Staged command cancelled", map[string]interface{}{
			"command": pending.Text,
		})
	}
	return ok
}
