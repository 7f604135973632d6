package form

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"grant-portal/internal/common/errors"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/metrics"
	"grant-portal/internal/common/observability"
	"grant-portal/internal/common/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrSubmissionDiscarded is returned by Submit when the engine was reset
// while the request was in flight. The response was ignored.
var ErrSubmissionDiscarded = stderrors.New("submission discarded after reset")

// SubmissionClient sends a payload to the backend. A non-2xx answer must
// be returned as *Rejection; anything else is treated as a transport failure.
type SubmissionClient interface {
	Submit(ctx context.Context, payload *Payload) (*Response, error)
}

// Observer is notified after every submission attempt that reached the network.
type Observer interface {
	SubmissionFinished(ctx context.Context, record Record)
}

type EngineDependencies struct {
	Client        SubmissionClient
	Logger        logger.Logger
	Observability *observability.Observability
	Observers     []Observer
}

// Engine owns the state of one form session. It is safe for concurrent use;
// Submit does not hold the lock while waiting for the network.
type Engine struct {
	config    *Config
	client    SubmissionClient
	logger    logger.Logger
	obs       *observability.Observability
	observers []Observer

	mu         sync.Mutex
	draft      Draft
	step       int
	errors     Errors
	submission Outcome
	generation uint64
}

func NewEngine(deps EngineDependencies, config *Config) (*Engine, error) {
	if deps.Client == nil {
		return nil, errors.NewConfigInvalidError("submission client is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Engine{
		config:    config,
		client:    deps.Client,
		logger:    log.WithFields(map[string]interface{}{"component": "form"}),
		obs:       deps.Observability,
		observers: deps.Observers,
		step:      FirstStep,
		errors:    Errors{},
	}, nil
}

// ==========================
// Read API
// ==========================

func (e *Engine) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

func (e *Engine) Step() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

func (e *Engine) Errors() Errors {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errors.Clone()
}

func (e *Engine) Submission() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submission
}

func (e *Engine) StepTitle(n int) string { return StepTitle(n) }

// Progress returns the number of completed steps.
func (e *Engine) Progress() int {
	return e.Step() - 1
}

func (e *Engine) Config() *Config { return e.config }

// ==========================
// Editing
// ==========================

// UpdateField writes value into the draft and clears the field's error.
// Text fields take a string, consent flags a bool and ID card fields an
// *Attachment or nil. SSN input is masked as ###-##-#### and funding
// amounts are reduced to a plain decimal string.
func (e *Engine) UpdateField(field Field, value interface{}) error {
	if _, ok := fieldLabels[field]; !ok {
		return errors.NewUnknownFieldError(string(field))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case field.IsFile():
		var a *Attachment
		switch v := value.(type) {
		case nil:
		case *Attachment:
			a = v.clone()
		case Attachment:
			a = v.clone()
		default:
			return errors.NewInvalidFieldValueError(string(field), "*form.Attachment", value)
		}
		*e.draft.file(field) = a

	case field.IsFlag():
		v, ok := value.(bool)
		if !ok {
			return errors.NewInvalidFieldValueError(string(field), "bool", value)
		}
		*e.draft.flag(field) = v

	default:
		v, ok := value.(string)
		if !ok {
			return errors.NewInvalidFieldValueError(string(field), "string", value)
		}
		*e.draft.text(field) = normalize(field, v)
	}

	delete(e.errors, field)
	return nil
}

// Attach binds a file to one of the ID card fields.
func (e *Engine) Attach(field Field, filename, contentType string, data []byte) error {
	if !field.IsFile() {
		return errors.NewInvalidFieldValueError(string(field), "file field", filename)
	}
	return e.UpdateField(field, &Attachment{Filename: filename, ContentType: contentType, Data: data})
}

func normalize(field Field, value string) string {
	switch field {
	case FieldSSN:
		return validation.FormatSSN(value)
	case FieldFundingAmount:
		return validation.NormalizeAmount(value)
	}
	return value
}

// ==========================
// Navigation
// ==========================

// ValidateStep runs the validators of step n (clamped to the valid range)
// against the draft and replaces the error set with the result.
func (e *Engine) ValidateStep(n int) (Errors, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := e.validateLocked(n)
	return errs.Clone(), len(errs) == 0
}

func (e *Engine) validateLocked(n int) Errors {
	n = clampStep(n)
	errs := validateStep(n, &e.draft, e.config)
	e.errors = errs

	stepLabel := strconv.Itoa(n)
	for f := range errs {
		metrics.StepValidationFailures.WithLabelValues(stepLabel, string(f)).Inc()
	}
	return errs
}

// AdvanceStep validates the current step and moves forward when it passes.
// It reports whether the current step was valid.
func (e *Engine) AdvanceStep() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if errs := e.validateLocked(e.step); len(errs) > 0 {
		e.logger.Debug("Step validation failed", map[string]interface{}{
			"step":   e.step,
			"fields": errs.Fields(),
		})
		return false
	}

	if e.step < FinalStep {
		e.step++
		metrics.StepTransitions.WithLabelValues("forward").Inc()
	}
	return true
}

// RetreatStep moves back one step without validating.
func (e *Engine) RetreatStep() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.step > FirstStep {
		e.step--
		metrics.StepTransitions.WithLabelValues("back").Inc()
	}
	return e.step
}

// Reset discards the draft and any submission state. A submission still
// in flight completes without affecting the engine.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.submission = Outcome{}
}

func (e *Engine) resetLocked() {
	e.draft = Draft{}
	e.step = FirstStep
	e.errors = Errors{}
	e.generation++
}

// ==========================
// Submission
// ==========================

// Submit sends the draft once. It must be called on the final step with
// every step valid; otherwise no request is made and the submission state
// is left as it was. The returned Outcome is also readable via Submission.
func (e *Engine) Submit(ctx context.Context) (Outcome, error) {
	e.mu.Lock()
	if e.submission.State == StateInFlight {
		current := e.submission
		e.mu.Unlock()
		return current, errors.NewSubmissionInFlightError()
	}
	if err := e.checkSubmittableLocked(); err != nil {
		current := e.submission
		e.mu.Unlock()
		metrics.Submissions.WithLabelValues("rejected_locally").Inc()
		return current, err
	}

	e.generation++
	generation := e.generation
	payload := BuildPayload(e.draft.Clone())
	payload.RequestID = uuid.NewString()
	e.errors = Errors{}
	e.submission = Outcome{State: StateInFlight, RequestID: payload.RequestID}
	e.mu.Unlock()

	metrics.SubmissionsInFlight.Inc()
	defer metrics.SubmissionsInFlight.Dec()

	log := e.logger.WithFields(map[string]interface{}{"requestId": payload.RequestID})
	log.Info("Submitting application", map[string]interface{}{
		"files": len(payload.Files),
	})

	resp, duration, err := e.send(ctx, payload)

	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		log.Warn("Discarding submission result after reset", map[string]interface{}{"error": err})
		e.notify(ctx, Record{RequestID: payload.RequestID, Duration: duration, Err: err, Discarded: true})
		return Outcome{}, ErrSubmissionDiscarded
	}

	record := Record{RequestID: payload.RequestID, Duration: duration, Err: err}
	if err == nil {
		e.submission = Outcome{State: StateSucceeded, Response: resp.Body, RequestID: payload.RequestID}
		e.resetLocked()
		record.HTTPStatus = resp.Status
	} else {
		message, fieldErrors, status := describeFailure(err)
		e.submission = Outcome{State: StateFailed, Message: message, RequestID: payload.RequestID}
		e.mergeServerErrorsLocked(fieldErrors)
		e.errors[FieldSubmission] = message
		record.Message = message
		record.HTTPStatus = status
	}
	outcome := e.submission
	record.State = outcome.State
	e.mu.Unlock()

	label := outcome.State.String()
	metrics.Submissions.WithLabelValues(label).Inc()
	e.obs.RecordSubmission(ctx, label)
	e.obs.RecordSubmissionDuration(ctx, duration, label)

	if err != nil {
		log.Error("Submission failed", map[string]interface{}{
			"error":      err,
			"httpStatus": record.HTTPStatus,
			"durationMs": duration.Milliseconds(),
		})
	} else {
		log.Info("Submission succeeded", map[string]interface{}{
			"httpStatus": record.HTTPStatus,
			"durationMs": duration.Milliseconds(),
		})
	}

	e.notify(ctx, record)
	return outcome, err
}

func (e *Engine) checkSubmittableLocked() error {
	if e.step != FinalStep {
		return errors.NewNotOnFinalStepError(e.step, FinalStep)
	}
	if errs := e.validateLocked(FinalStep); len(errs) > 0 {
		return errors.NewStepValidationFailedError(FinalStep, errs.strings())
	}
	// Earlier steps may have been edited since they were passed.
	for n := FirstStep; n < FinalStep; n++ {
		if errs := validateStep(n, &e.draft, e.config); len(errs) > 0 {
			e.step = n
			e.validateLocked(n)
			return errors.NewStepValidationFailedError(n, errs.strings())
		}
	}
	return nil
}

func (e *Engine) send(ctx context.Context, payload *Payload) (*Response, time.Duration, error) {
	if e.config.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.SubmitTimeout)
		defer cancel()
	}

	ctx, span := e.obs.StartSpan(ctx, "form.submit",
		attribute.String("request.id", payload.RequestID),
		attribute.Int("files", len(payload.Files)),
	)

	start := time.Now()
	resp, err := e.client.Submit(ctx, payload)
	duration := time.Since(start)
	if err == nil && resp == nil {
		resp = &Response{}
	}

	observability.EndSpan(span, err)
	return resp, duration, err
}

// describeFailure picks the message shown to the user: the server's own
// message for a rejection, otherwise the generic one.
func describeFailure(err error) (string, map[string]string, int) {
	var rejection *Rejection
	if stderrors.As(err, &rejection) {
		message := rejection.Message
		if message == "" {
			message = errors.GenericSubmissionMessage
		}
		return message, rejection.FieldErrors, rejection.Status
	}
	return errors.GenericSubmissionMessage, nil, 0
}

// mergeServerErrorsLocked copies server field errors for known fields.
func (e *Engine) mergeServerErrorsLocked(fieldErrors map[string]string) {
	for name, msg := range fieldErrors {
		f, ok := ParseField(name)
		if !ok {
			e.logger.Debug("Ignoring error for unknown field", map[string]interface{}{"field": name})
			continue
		}
		e.errors[f] = msg
	}
}

func (e *Engine) notify(ctx context.Context, record Record) {
	for _, o := range e.observers {
		o.SubmissionFinished(ctx, record)
	}
}
