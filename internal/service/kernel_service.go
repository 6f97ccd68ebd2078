package service

import (
	"context"
	"fmt"
	"strings"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/ai/router"
	"kernel-workspace-be/pkg/events"
	ragcontext "kernel-workspace-be/pkg/rag/context"
	"kernel-workspace-be/pkg/rag/prompt"
	"kernel-workspace-be/pkg/rag/response"
	"kernel-workspace-be/pkg/vectorstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("kernel-workspace-be/internal/service")

// RouteCache is the part of the route decision cache the kernel resets.
type RouteCache interface {
	Flush()
}

// AskResult is a started answer: the routing outcome, the status label for
// the client and the token stream itself.
type AskResult struct {
	Decision router.Decision
	Status   string
	Persona  prompt.Persona
	Stream   *response.Stream
}

type IKernelService interface {
	Ask(ctx context.Context, req *dto.AskRequest) (*AskResult, error)
	CommitMemory(ctx context.Context, req *dto.CommitMemoryRequest) error
	ClearMemory(ctx context.Context) error
	Workspace(ctx context.Context) *dto.WorkspaceResponse
	Personas() []dto.PersonaResponse
}

type kernelService struct {
	session    *Session
	router     *router.Router
	assembler  *ragcontext.Assembler
	generator  *response.Generator
	index      vectorstore.Store
	routeCache RouteCache
	publisher  events.Publisher
	logger     logger.ILogger
}

func NewKernelService(
	session *Session,
	intentRouter *router.Router,
	assembler *ragcontext.Assembler,
	generator *response.Generator,
	index vectorstore.Store,
	routeCache RouteCache,
	publisher events.Publisher,
	log logger.ILogger,
) IKernelService {
	return &kernelService{
		session:    session,
		router:     intentRouter,
		assembler:  assembler,
		generator:  generator,
		index:      index,
		routeCache: routeCache,
		publisher:  publisher,
		logger:     log,
	}
}

// Ask routes the question, gathers context and starts streaming the answer.
// It returns once the first token is available; a backend failure before
// that is returned as *response.GenerationError.
func (s *kernelService) Ask(ctx context.Context, req *dto.AskRequest) (*AskResult, error) {
	ctx, span := tracer.Start(ctx, "kernel.ask")
	defer span.End()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, &InvalidInputError{Message: "question is required"}
	}

	persona, ok := prompt.ParsePersona(req.Persona)
	if !ok {
		s.logger.Warn("Kernel", "Unknown persona, using default", map[string]interface{}{
			"persona": req.Persona,
		})
	}

	activeFiles := s.session.Workspace.ActiveFiles()
	decision := s.router.Route(ctx, question, activeFiles)
	span.SetAttributes(
		attribute.String("kernel.route", string(decision.Route)),
		attribute.String("kernel.route_source", string(decision.Source)),
		attribute.String("kernel.persona", persona.String()),
	)

	assembly := s.assembler.Assemble(ctx, question, decision.Route, s.session.Workspace)

	history, err := s.session.History.RecentMessages(ctx)
	if err != nil {
		s.logger.Warn("Kernel", "Failed to load history, answering without it", map[string]interface{}{
			"error": err.Error(),
		})
		history = nil
	}

	system := prompt.BuildSystemInstruction(persona, activeFiles, assembly.Context)
	messages := prompt.BuildMessages(system, history, question)

	stream, err := s.generator.Start(ctx, response.Request{
		Query:    question,
		Messages: messages,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	s.logger.Info("Kernel", "Answer stream started", map[string]interface{}{
		"route":    string(decision.Route),
		"source":   string(decision.Source),
		"persona":  persona.String(),
		"degraded": assembly.Degraded,
		"history":  len(history) / 2,
	})

	return &AskResult{
		Decision: decision,
		Status:   assembly.Status,
		Persona:  persona,
		Stream:   stream,
	}, nil
}

// CommitMemory stores text in long-term memory. It survives ClearMemory.
func (s *kernelService) CommitMemory(ctx context.Context, req *dto.CommitMemoryRequest) error {
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return &InvalidInputError{Message: "nothing to remember"}
	}

	doc := vectorstore.Document{
		Content: text,
		Metadata: map[string]string{
			vectorstore.MetadataSource: vectorstore.SourceVerifiedSolution,
		},
	}
	if err := s.index.Add(ctx, []vectorstore.Document{doc}); err != nil {
		return &IndexingError{Source: vectorstore.SourceVerifiedSolution, Err: err}
	}

	s.logger.Info("Kernel", "Solution committed to long-term memory", map[string]interface{}{
		"chars": len(text),
	})
	emit(ctx, s.publisher, s.logger, events.MemoryCommitted, map[string]interface{}{
		"chars": len(text),
	})
	return nil
}

// ClearMemory wipes short-term memory: history, workspace files and cached
// routing decisions. Long-term memory and the staged command are untouched.
func (s *kernelService) ClearMemory(ctx context.Context) error {
	if err := s.session.History.Clear(ctx); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	s.session.Workspace.Clear()
	if s.routeCache != nil {
		s.routeCache.Flush()
	}

	s.logger.Info("Kernel", "Short-term memory cleared", nil)
	emit(ctx, s.publisher, s.logger, events.MemoryCleared, nil)
	return nil
}

func (s *kernelService) Workspace(ctx context.Context) *dto.WorkspaceResponse {
	docs := s.session.Workspace.Documents()
	files := make([]dto.WorkspaceFileResponse, 0, len(docs))
	for _, d := range docs {
		files = append(files, dto.WorkspaceFileResponse{
			Name:         d.Name,
			PreviewChars: len([]rune(d.Preview)),
			UpdatedAt:    d.UpdatedAt,
		})
	}

	res := &dto.WorkspaceResponse{Files: files}
	if pending, ok := s.session.Approval.Pending(); ok {
		res.PendingCommand = &pending.Text
	}

	count, err := s.session.History.Count(ctx)
	if err != nil {
		s.logger.Warn("Kernel", "Failed to count interactions", map[string]interface{}{
			"error": err.Error(),
		})
	}
	res.Interactions = count
	return res
}

func (s *kernelService) Personas() []dto.PersonaResponse {
	personas := prompt.Personas()
	res := make([]dto.PersonaResponse, 0, len(personas))
	for _, p := range personas {
		res = append(res, dto.PersonaResponse{Name: p.String()})
	}
	return res
}

// AutoAnalysisPrompt is the question sent on behalf of the user right after
// an upload so the assistant summarizes the new file.
func AutoAnalysisPrompt(filename string) string {
	return fmt.Sprintf("System Event: The user just uploaded a file named %q. "+
		"Based on your file previews, briefly summarize what this file is, "+
		"and tell the user exactly what tasks or problems need to be solved in it.", filename)
}
