// Package jobapp fills in job application forms from a candidate's resume,
// pausing for human review before final submission.
//
// The package is a thin facade over two layers. pkg/flow defines the
// event-driven workflow engine: typed events, steps triggered by event kind,
// a fan-in barrier for parallel work, and run handles that suspend for and
// resume on human input. internal packages supply the concrete collaborators
// for this application: document parsing, resume indexing with embedding
// search, and LLM completion.
//
// Typical usage:
//
//	eng := jobapp.NewInMemoryEngine()
//	svc, err := jobapp.DefaultServices(apiKey)
//	if err != nil { ... }
//	if err := eng.RegisterWorkflow(jobapp.NewWorkflow(svc, 10*time.Minute)); err != nil { ... }
//
//	h, err := eng.Start(ctx, jobapp.WorkflowName, map[string]any{
//		"resume_file":      "resume.md",
//		"application_form": "form.md",
//	})
//	for ev := range h.Events() {
//		if ev.Kind() == jobapp.KindInputRequired {
//			// show ev.String(jobapp.FieldResult), gather feedback
//			_ = h.Respond("looks good")
//		}
//	}
//	result, err := h.Result(ctx)
package jobapp
