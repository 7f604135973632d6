package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"grant-portal/internal/common/errors"
	"grant-portal/internal/common/validation"
	"grant-portal/internal/form"

	"github.com/spf13/cobra"
)

func newApplyCommand(g *globals) *cobra.Command {
	var front, back string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Fill in and submit a grant application",
		Long: `Walks through the four steps of the application form (personal info,
verification documents, details, review) and submits it.

The ID card images can be passed up front with --front and --back; any
document not given is asked for when its step is reached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				engine, err := a.newEngine(ctx)
				if err != nil {
					return err
				}
				flow := &applyFlow{
					engine: engine,
					prompt: g.prompter,
					out:    g.out,
					files: map[form.Field]string{
						form.FieldIDCardFront: front,
						form.FieldIDCardBack:  back,
					},
				}
				outcome, err := flow.run(ctx)
				if err != nil {
					return err
				}
				if id, ok := outcome.Response["applicationId"]; ok {
					fmt.Fprintf(g.out, "Application ID: %v\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&front, "front", "", "path to the front of the ID card (JPEG, PNG or PDF)")
	cmd.Flags().StringVar(&back, "back", "", "path to the back of the ID card (JPEG, PNG or PDF)")
	return cmd
}

// applyFlow drives a form.Engine from terminal prompts. Each step is asked
// in full on the first visit; after a failed validation only the fields
// with errors are asked again.
type applyFlow struct {
	engine *form.Engine
	prompt Prompter
	out    io.Writer
	files  map[form.Field]string

	visited  map[int]bool
	resubmit bool
}

func (f *applyFlow) run(ctx context.Context) (form.Outcome, error) {
	f.visited = map[int]bool{}

	for {
		if err := ctx.Err(); err != nil {
			return form.Outcome{}, err
		}

		step := f.engine.Step()
		if !f.resubmit || step != form.FinalStep {
			fields := form.StepFields(step)
			if f.visited[step] {
				fields = f.failing(fields)
			} else {
				fmt.Fprintf(f.out, "\nStep %d of %d: %s\n", step, form.FinalStep, f.engine.StepTitle(step))
				f.visited[step] = true
			}
			if err := f.ask(fields); err != nil {
				return form.Outcome{}, err
			}
		}
		f.resubmit = false

		if step < form.FinalStep {
			if !f.engine.AdvanceStep() {
				f.printErrors()
			}
			continue
		}

		outcome, err := f.submit(ctx)
		if err == nil || outcome.Succeeded() {
			return outcome, err
		}
		if !outcome.Failed() {
			// Rejected locally; the engine may have moved back to an earlier step.
			if !isCode(err, errors.ErrCodeStepValidationFailed) {
				return outcome, err
			}
			f.printErrors()
			continue
		}

		f.printErrors()
		retry, perr := f.prompt.Confirm("Submission failed. Try again?", true)
		if perr != nil {
			return outcome, perr
		}
		if !retry {
			return outcome, err
		}
		if err := f.askServerFlagged(); err != nil {
			return outcome, err
		}
		f.resubmit = true
	}
}

func (f *applyFlow) submit(ctx context.Context) (form.Outcome, error) {
	fmt.Fprintln(f.out, "Submitting application...")
	outcome, err := f.engine.Submit(ctx)
	if err == nil {
		fmt.Fprintln(f.out, "Application submitted successfully.")
	}
	return outcome, err
}

// failing returns the fields that currently have errors.
func (f *applyFlow) failing(fields []form.Field) []form.Field {
	errs := f.engine.Errors()
	var out []form.Field
	for _, field := range fields {
		if _, ok := errs[field]; ok {
			out = append(out, field)
		}
	}
	return out
}

// askServerFlagged re-asks fields the server rejected, wherever they live.
func (f *applyFlow) askServerFlagged() error {
	var fields []form.Field
	for _, field := range f.engine.Errors().Fields() {
		if field != form.FieldSubmission {
			fields = append(fields, field)
		}
	}
	return f.ask(fields)
}

func (f *applyFlow) printErrors() {
	errs := f.engine.Errors()
	if msg, ok := errs[form.FieldSubmission]; ok {
		fmt.Fprintf(f.out, "  ! %s\n", msg)
	}
	for _, field := range errs.Fields() {
		if field == form.FieldSubmission {
			continue
		}
		fmt.Fprintf(f.out, "  ! %s: %s\n", field.Label(), errs[field])
	}
}

func (f *applyFlow) ask(fields []form.Field) error {
	for _, field := range fields {
		if err := f.askField(field); err != nil {
			return err
		}
	}
	return nil
}

func (f *applyFlow) askField(field form.Field) error {
	draft := f.engine.Draft()
	label := field.Label()

	switch {
	case field.IsFile():
		return f.askFile(field, draft.File(field))

	case field.IsFlag():
		v, err := f.prompt.Confirm(flagQuestion(field), draft.Flag(field))
		if err != nil {
			return err
		}
		return f.engine.UpdateField(field, v)

	case field == form.FieldState:
		v, err := f.prompt.Select(label, validation.USStates, draft.Text(field))
		if err != nil {
			return err
		}
		return f.engine.UpdateField(field, v)
	}

	if choices := f.engine.Config().Options.Values(string(field)); len(choices) > 0 {
		v, err := f.prompt.Select(label, choices, draft.Text(field))
		if err != nil {
			return err
		}
		return f.engine.UpdateField(field, v)
	}

	v, err := f.prompt.Input(label, f.fieldHelp(field), draft.Text(field))
	if err != nil {
		return err
	}
	return f.engine.UpdateField(field, v)
}

// askFile attaches the document given on the command line, or asks for a
// path. A flag path is used once; if it fails validation the user is asked.
func (f *applyFlow) askFile(field form.Field, current *form.Attachment) error {
	path := f.files[field]
	delete(f.files, field)

	if path == "" {
		def := ""
		if current != nil {
			def = current.Filename
		}
		var err error
		path, err = f.prompt.Input("Path to "+strings.ToLower(field.Label()), "JPEG, PNG or PDF, up to 10 MB", def)
		if err != nil {
			return err
		}
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return f.engine.UpdateField(field, nil)
	}
	if current != nil && path == current.Filename {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(f.out, "  ! cannot read %s: %v\n", path, err)
		return f.engine.UpdateField(field, nil)
	}
	return f.engine.Attach(field, filepath.Base(path), contentTypeOf(path, data), data)
}

// contentTypeOf prefers the extension and falls back to sniffing.
func contentTypeOf(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
		return ct
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func flagQuestion(field form.Field) string {
	switch field {
	case form.FieldAgreeToCommunication:
		return "Do you agree to receive communications about your application?"
	case form.FieldTermsAccepted:
		return "Do you accept the terms and conditions?"
	}
	return field.Label() + "?"
}

func (f *applyFlow) fieldHelp(field form.Field) string {
	switch field {
	case form.FieldSSN:
		return "###-##-####"
	case form.FieldDateOfBirth:
		return "YYYY-MM-DD"
	case form.FieldZip:
		return "5 digits"
	case form.FieldFundingAmount:
		return f.engine.Config().FundingRange.Message()
	}
	return ""
}

func isCode(err error, code errors.ErrorCode) bool {
	return stderrors.Is(err, &errors.StandardError{Code: code})
}
