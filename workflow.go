package jobapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

// WorkflowName is the name the form-filling workflow registers under.
const WorkflowName = "job-application"

// Event kinds produced and consumed by the workflow's own steps.
const (
	KindParseForm       Kind = "parse_form"
	KindGenerateQueries Kind = "generate_queries"
	KindFieldQuery      Kind = "field_query"
	KindFieldResponse   Kind = "field_response"
	KindFeedback        Kind = "feedback"
)

// Payload field names on the workflow's own events.
const (
	FieldApplicationForm = "application_form"
	FieldName            = "field"
	FieldQuery           = "query"
	FieldAnswer          = "answer"
	FieldFeedback        = "feedback"
)

// Start argument names.
const (
	ArgResumeFile      = "resume_file"
	ArgApplicationForm = "application_form"
)

// Run-context keys shared between steps.
const (
	keyResumeIndex  = "resume_index"
	keyFieldsToFill = "fields_to_fill"
	keyTotalFields  = "total_fields"
	keyFilledForm   = "filled_form"
)

// reviewPrompt is the prefix on every input_required event the workflow emits.
const reviewPrompt = "How does this look? Give me any feedback you have on any of the answers."

const fillFormPrompt = `You are given a list of fields in an application form and responses to
questions about those fields from a resume. Combine the two into a list of
fields and succinct, factual answers to fill in those fields.

<responses>
%s
</responses>`

const feedbackVerdictPrompt = `You have received some human feedback on the form-filling task you've done.
Does everything look good, or is there more work to be done?
<feedback>
%s
</feedback>
If everything is fine, respond with just the word 'OKAY'.
If there's any other feedback, respond with just the word 'FEEDBACK'.`

const integrateFeedbackPrompt = `You have received some human feedback on the form-filling task you've done.
Please integrate the feedback into the form.
<form>%s</form>
<feedback>%s</feedback>
Return the updated form.`

// NewWorkflow builds the form-filling workflow around the given collaborators.
// timeout <= 0 selects the engine default.
//
// The run proceeds in three phases. Setup indexes the resume and extracts
// the form's fields. Each field then fans out into a query against the
// resume index; a barrier collects all answers and drafts the filled form.
// Finally the run suspends for human review and loops on feedback until the
// reviewer is satisfied.
func NewWorkflow(svc Services, timeout time.Duration) WorkflowDefinition {
	w := &workflow{svc: svc}
	return WorkflowDefinition{
		Name:         WorkflowName,
		RequiredArgs: []string{ArgResumeFile, ArgApplicationForm},
		Timeout:      timeout,
		Steps: []StepDefinition{
			{Name: "setup", Accepts: []Kind{KindStart}, Fn: w.setup},
			{Name: "parse_form", Accepts: []Kind{KindParseForm}, Fn: w.parseForm},
			{Name: "generate_queries", Accepts: []Kind{KindGenerateQueries}, Fn: w.generateQueries},
			{Name: "answer_query", Accepts: []Kind{KindFieldQuery}, Fn: w.answerQuery},
			{Name: "fill_form", Accepts: []Kind{KindFieldResponse}, Fn: w.fillForm},
			{Name: "assess_feedback", Accepts: []Kind{KindHumanResponse}, Fn: w.assessFeedback},
			{Name: "integrate_feedback", Accepts: []Kind{KindFeedback}, Fn: w.integrateFeedback},
		},
	}
}

type workflow struct {
	svc Services
}

// setup indexes the resume and hands the form path to the parsing step.
func (w *workflow) setup(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	resumeText, err := w.svc.Parser.Parse(ctx, ev.String(ArgResumeFile))
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}
	idx, err := w.svc.Indexer.Index(ctx, []string{resumeText})
	if err != nil {
		return nil, fmt.Errorf("index resume: %w", err)
	}
	fc.Set(keyResumeIndex, idx)

	return []Event{flow.NewEvent(KindParseForm, map[string]any{
		FieldApplicationForm: ev.String(ArgApplicationForm),
	})}, nil
}

// parseForm extracts the ordered list of fields the form wants filled.
func (w *workflow) parseForm(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	formText, err := w.svc.Parser.Parse(ctx, ev.String(FieldApplicationForm))
	if err != nil {
		return nil, fmt.Errorf("parse application form: %w", err)
	}
	fields, err := w.svc.Fields.ExtractFields(ctx, formText)
	if err != nil {
		return nil, err
	}
	fc.Set(keyFieldsToFill, fields)

	return []Event{flow.NewEvent(KindGenerateQueries, nil)}, nil
}

// generateQueries fans out one query event per form field. The total is
// recorded before returning so the collecting step knows its barrier size by
// the time the first answer arrives.
func (w *workflow) generateQueries(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	v, ok := fc.Get(keyFieldsToFill)
	if !ok {
		return nil, fmt.Errorf("run context missing %s", keyFieldsToFill)
	}
	fields := v.([]string)
	fc.Set(keyTotalFields, len(fields))

	events := make([]Event, 0, len(fields))
	for _, field := range fields {
		events = append(events, flow.NewEvent(KindFieldQuery, map[string]any{
			FieldName:  field,
			FieldQuery: fmt.Sprintf("How would you answer this question about the candidate? <field>%s</field>", field),
		}))
	}
	return events, nil
}

// answerQuery answers a single field's question from the resume index.
// Instances of this step run concurrently, one per field.
func (w *workflow) answerQuery(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	v, ok := fc.Get(keyResumeIndex)
	if !ok {
		return nil, fmt.Errorf("run context missing %s", keyResumeIndex)
	}
	idx := v.(Index)

	question := fmt.Sprintf("This is a question about the specific resume we have in our database: %s", ev.String(FieldQuery))
	answer, err := idx.Query(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("answer field %q: %w", ev.String(FieldName), err)
	}

	return []Event{flow.NewEvent(KindFieldResponse, map[string]any{
		FieldName:   ev.String(FieldName),
		FieldAnswer: answer,
	})}, nil
}

// fillForm is the fan-in barrier. It buffers answers until one per field has
// arrived, then drafts the filled form and suspends for review.
func (w *workflow) fillForm(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	total := 0
	if v, ok := fc.Get(keyTotalFields); ok {
		total = v.(int)
	}

	responses, ok := fc.Collect(ev, flow.Repeat(KindFieldResponse, total))
	if !ok {
		return nil, nil
	}

	var sb strings.Builder
	for _, r := range responses {
		fmt.Fprintf(&sb, "Field: %s\nResponse: %s\n", r.String(FieldName), r.String(FieldAnswer))
	}

	filled, err := w.svc.Completer.Complete(ctx, fmt.Sprintf(fillFormPrompt, sb.String()))
	if err != nil {
		return nil, fmt.Errorf("fill form: %w", err)
	}
	fc.Set(keyFilledForm, filled)

	return []Event{flow.NewInputRequired(reviewPrompt, filled)}, nil
}

// assessFeedback classifies the reviewer's reply. Satisfied reviewers end the
// run with the current draft; anything else loops back for another revision.
func (w *workflow) assessFeedback(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	feedback := ev.String(FieldResponse)
	verdict, err := w.svc.Completer.Complete(ctx, fmt.Sprintf(feedbackVerdictPrompt, feedback))
	if err != nil {
		return nil, fmt.Errorf("assess feedback: %w", err)
	}

	if strings.TrimSpace(verdict) == "OKAY" {
		filled, _ := fc.Get(keyFilledForm)
		return []Event{flow.NewStop(filled)}, nil
	}
	return []Event{flow.NewEvent(KindFeedback, map[string]any{
		FieldFeedback: feedback,
	})}, nil
}

// integrateFeedback revises the draft with the reviewer's feedback and
// suspends again for the next review round.
func (w *workflow) integrateFeedback(ctx context.Context, fc flow.Context, ev Event) ([]Event, error) {
	filled, _ := fc.Get(keyFilledForm)
	current, _ := filled.(string)

	updated, err := w.svc.Completer.Complete(ctx, fmt.Sprintf(integrateFeedbackPrompt, current, ev.String(FieldFeedback)))
	if err != nil {
		return nil, fmt.Errorf("integrate feedback: %w", err)
	}
	fc.Set(keyFilledForm, updated)

	return []Event{flow.NewInputRequired(reviewPrompt, updated)}, nil
}
