// Command jobapp fills in a job application form from a resume on the
// command line, asking for feedback on the draft interactively.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	jobapp "github.com/janngomaa/ai-job-application"
)

func main() {
	resume := flag.String("resume", "", "path to the resume document")
	form := flag.String("form", "", "path to the application form document")
	model := flag.String("model", jobapp.DefaultModel, "OpenAI completion model")
	embeddingModel := flag.String("embedding-model", jobapp.DefaultEmbeddingModel, "OpenAI embedding model")
	timeout := flag.Duration("timeout", 10*time.Minute, "wall-clock budget for the run")
	verbose := flag.Bool("v", false, "log step activity")
	flag.Parse()

	if *resume == "" || *form == "" {
		fmt.Fprintln(os.Stderr, "usage: jobapp -resume <file> -form <file>")
		os.Exit(2)
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "OPENAI_API_KEY is not set")
		os.Exit(2)
	}

	var obs jobapp.Observer = jobapp.NoopObserver{}
	if *verbose {
		obs = jobapp.NewLoggingObserver(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	if err := run(apiKey, *model, *embeddingModel, *resume, *form, *timeout, obs); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(apiKey, model, embeddingModel, resume, form string, timeout time.Duration, obs jobapp.Observer) error {
	svc, err := jobapp.OpenAIServices(apiKey, model, embeddingModel)
	if err != nil {
		return err
	}

	eng := jobapp.NewInMemoryEngineWithObserver(obs)
	if err := eng.RegisterWorkflow(jobapp.NewWorkflow(svc, timeout)); err != nil {
		return err
	}

	ctx := context.Background()
	h, err := eng.Start(ctx, jobapp.WorkflowName, map[string]any{
		jobapp.ArgResumeFile:      resume,
		jobapp.ArgApplicationForm: form,
	})
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)
	for ev := range h.Events() {
		if ev.Kind() != jobapp.KindInputRequired {
			continue
		}
		fmt.Println("We've filled in your form! Here are the results:")
		fmt.Println()
		fmt.Println(ev.String(jobapp.FieldResult))
		fmt.Println()
		fmt.Print(ev.String(jobapp.FieldPrefix), " ")

		line, err := stdin.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read feedback: %w", err)
		}
		if err := h.Respond(strings.TrimSpace(line)); err != nil {
			return err
		}
	}

	result, err := h.Result(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Agent complete! Here's your final result:")
	fmt.Println(result)
	return nil
}
