package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/repository"

	"github.com/rs/zerolog"
)

// Completer produces a reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CustomerReader loads the customer being analysed.
type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (domain.Organization, error)
}

// LogStore records each analysis request.
type LogStore interface {
	Create(ctx context.Context, log domain.AnalysisLog) (domain.AnalysisLog, error)
	UpdatePrompt(ctx context.Context, id int64, prompt string) error
	Complete(ctx context.Context, id int64, result string) (domain.AnalysisLog, error)
	Fail(ctx context.Context, id int64, message string) (domain.AnalysisLog, error)
}

// ErrAnalysisFailed is returned when the completion call fails. The cause is kept on the log.
var ErrAnalysisFailed = errors.New("AI analysis failed")

// Result is the outcome of a completed analysis.
type Result struct {
	Analysis string `json:"analysis"`
	LogID    int64  `json:"logId"`
}

// Analyzer runs customer analyses and keeps the analysis log in step.
type Analyzer struct {
	llm       Completer
	customers CustomerReader
	logs      LogStore
}

// NewAnalyzer returns an Analyzer that asks llm about customers and records each run in logs.
func NewAnalyzer(llm Completer, customers CustomerReader, logs LogStore) *Analyzer {
	return &Analyzer{llm: llm, customers: customers, logs: logs}
}

// AnalyzeCustomer asks the model about one customer. The log moves from processing to completed or
// failed exactly once.
func (a *Analyzer) AnalyzeCustomer(ctx context.Context, customerID int64, kind domain.AnalysisType, actor domain.Actor) (Result, error) {
	customer, err := a.customers.GetByID(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("load customer %d: %w", customerID, err)
	}

	entry := domain.AnalysisLog{
		EntityType:   "customer",
		EntityID:     customerID,
		AnalysisType: kind,
		Prompt:       "Analyzing...",
		Status:       domain.AnalysisStatusProcessing,
	}
	if actor.ID != 0 {
		id := actor.ID
		entry.RequestedBy = &id
	}
	entry, err = a.logs.Create(ctx, entry)
	if err != nil {
		return Result{}, fmt.Errorf("create analysis log: %w", err)
	}

	logger := zerolog.Ctx(ctx).With().
		Int64("analysis_log_id", entry.ID).
		Str("analysis_type", string(kind)).
		Logger()

	prompt := Prompt(kind, customer)
	if err := a.logs.UpdatePrompt(ctx, entry.ID, prompt); err != nil {
		return Result{}, a.fail(ctx, logger, entry.ID, err)
	}

	reply, err := a.llm.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return Result{}, a.fail(ctx, logger, entry.ID, err)
	}

	if _, err := a.logs.Complete(context.WithoutCancel(ctx), entry.ID, reply); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return Result{}, a.fail(ctx, logger, entry.ID, fmt.Errorf("complete analysis log: %w", err))
		}
		return Result{}, fmt.Errorf("complete analysis log %d: %w", entry.ID, err)
	}
	logger.Info().Msg("analysis completed")
	return Result{Analysis: reply, LogID: entry.ID}, nil
}

func (a *Analyzer) fail(ctx context.Context, logger zerolog.Logger, id int64, cause error) error {
	logger.Error().Err(cause).Msg("analysis failed")
	if _, err := a.logs.Fail(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("failed to record analysis failure")
	}
	return fmt.Errorf("%w: %v", ErrAnalysisFailed, cause)
}

// Prompt builds the user prompt for an analysis type.
func Prompt(kind domain.AnalysisType, customer domain.Organization) string {
	subject := fmt.Sprintf("Customer: %s, Industry: %s, Business: %s",
		customer.Name, orUnknown(customer.Industry), orUnknown(customer.Description))

	switch kind {
	case domain.AnalysisRiskAssessment:
		return fmt.Sprintf("Evaluate risk for: %s.", subject)
	case domain.AnalysisProductMatch:
		return fmt.Sprintf("Suggest products for: %s.", subject)
	case domain.AnalysisTalkingPoints:
		return fmt.Sprintf("Talking points for: %s.", subject)
	default:
		return fmt.Sprintf("Analyze this customer: %s.", subject)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
