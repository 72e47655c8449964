package pipeline

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/invoice-reconciler/internal/compare"
	"github.com/jonathan/invoice-reconciler/internal/llm"
	"github.com/jonathan/invoice-reconciler/internal/prompts"
	"github.com/jonathan/invoice-reconciler/internal/reconcile"
	"github.com/jonathan/invoice-reconciler/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options configures a pipeline run
type Options struct {
	Currency            string  `validate:"required,len=3,alpha"`
	Tolerance           float64 `validate:"gt=0"`
	SimilarityThreshold float64 `validate:"gt=0,lte=1"`
	// ModelReview sends the comparison prompt to the model as an advisory cross-check
	ModelReview bool
	// SkipSchemaValidation disables the schema check on normalized payloads
	SkipSchemaValidation bool
	Tier                 llm.ModelTier
	ReviewTier           llm.ModelTier
	Similarity           compare.Similarity `validate:"-"`
	OnProgress           ProgressCallback   `validate:"-"`
}

// DefaultOptions returns INR, a 0.01 tolerance and a 0.6 similarity threshold
func DefaultOptions() Options {
	return Options{
		Currency:            types.DefaultCurrency,
		Tolerance:           compare.DefaultTolerance,
		SimilarityThreshold: compare.DefaultThreshold,
		Tier:                llm.TierStandard,
		ReviewTier:          llm.TierLite,
	}
}

// Validate checks the options, reporting the first offending field
func (o Options) Validate() error {
	err := validator.New().Struct(o)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: "failed " + fe.Tag() + " check",
		}
	}
	return &ValidationError{Message: err.Error()}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Currency == "" {
		o.Currency = def.Currency
	}
	o.Currency = strings.ToUpper(o.Currency)
	if o.Tolerance == 0 {
		o.Tolerance = def.Tolerance
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = def.SimilarityThreshold
	}
	if o.Tier == "" {
		o.Tier = def.Tier
	}
	if o.ReviewTier == "" {
		o.ReviewTier = def.ReviewTier
	}
	return o
}

func (o Options) buildOptions() prompts.BuildOptions {
	return prompts.BuildOptions{Currency: o.Currency, Tolerance: o.Tolerance}
}

func (o Options) reconcileOptions() reconcile.Options {
	return reconcile.Options{Currency: o.Currency}
}

func (o Options) matcher() *compare.Matcher {
	return compare.NewMatcher(compare.Options{
		Tolerance:  o.Tolerance,
		Threshold:  o.SimilarityThreshold,
		Similarity: o.Similarity,
	})
}

// emitProgress calls the progress callback if configured
func (o Options) emitProgress(runID, step, category, message string, content any) {
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    runID,
			Content:  content,
		})
	}
}
