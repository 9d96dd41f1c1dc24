package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/livesignup/pkg/audit"
	"github.com/gabrielmiguelok/livesignup/pkg/core"
	"github.com/gabrielmiguelok/livesignup/pkg/forms"
	"github.com/gabrielmiguelok/livesignup/pkg/i18n"
	"github.com/gabrielmiguelok/livesignup/pkg/logging"
)

// Events sent by the browser client.
const (
	EventChange        = "change"
	EventBlur          = "blur"
	EventNext          = "next"
	EventBack          = "back"
	EventSubmit        = "submit"
	EventDismissToast  = "dismiss_toast"
	EventDismissResult = "dismiss_result"
)

// Session keys read on mount.
const (
	SessionLocale = "locale"
	SessionTheme  = "theme"
)

// DefaultToastDuration is how long the mismatch notice stays up.
const DefaultToastDuration = time.Second

// ErrUnknownEvent is returned for events the form does not handle.
var ErrUnknownEvent = errors.New("signup: unknown event")

// Submission results recorded by a Recorder.
const (
	ResultAccepted = "accepted"
	ResultInvalid  = "invalid"
	ResultMismatch = "mismatch"
	ResultRefused  = "refused"
)

// Recorder counts form outcomes. *metrics.Metrics implements it.
type Recorder interface {
	StepAdvanced()
	StepRefused()
	StepBack()
	Submission(result string)
	FieldInvalid(field, rule string)
}

type nopRecorder struct{}

func (nopRecorder) StepAdvanced()               {}
func (nopRecorder) StepRefused()                {}
func (nopRecorder) StepBack()                   {}
func (nopRecorder) Submission(string)           {}
func (nopRecorder) FieldInvalid(string, string) {}

// toastExpired is scheduled on the socket when the mismatch notice opens.
// gen ties it to one opening so a late timer cannot close a newer notice.
type toastExpired struct{ gen int }

// Options configures the live component. Zero fields take defaults.
type Options struct {
	Schema        *forms.Schema
	Translator    *i18n.Translator
	Handoff       Handoff
	Logger        logging.Logger
	Audit         audit.Logger
	Recorder      Recorder
	ToastDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Schema == nil {
		o.Schema = MustSchema()
	}
	if o.Translator == nil {
		o.Translator = NewTranslator("ko")
	}
	if o.Logger == nil {
		o.Logger = logging.NopLogger{}
	}
	if o.Handoff == nil {
		o.Handoff = LogHandoff{Logger: o.Logger}
	}
	if o.Audit == nil {
		o.Audit = audit.NopLogger{}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.ToastDuration <= 0 {
		o.ToastDuration = DefaultToastDuration
	}
	return o
}

// Live is the signup form component. One instance serves one connection.
type Live struct {
	core.BaseComponent

	opts        Options
	form        *Form
	loc         i18n.Localizer
	theme       string
	toastGen    int
	cancelToast func()
}

// New returns a component factory for the router.
func New(opts Options) func() core.Component {
	opts = opts.withDefaults()
	return func() core.Component {
		return &Live{opts: opts}
	}
}

// Name implements core.Component.
func (c *Live) Name() string {
	return "signup"
}

// Form exposes the form state.
func (c *Live) Form() *Form {
	return c.form
}

// Mount implements core.Component.
func (c *Live) Mount(ctx context.Context, params core.Params, session core.Session) error {
	c.form = NewForm(c.opts.Schema)

	locale := session.GetString(SessionLocale)
	if locale == "" || !c.opts.Translator.Has(locale) {
		locale = c.opts.Translator.Fallback()
	}
	c.loc = c.opts.Translator.For(locale)
	c.theme = session.GetString(SessionTheme)
	return nil
}

// HandleEvent implements core.Component.
func (c *Live) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case EventChange:
		return c.form.Change(stringValue(payload, "field"), stringValue(payload, "value"))

	case EventBlur:
		field := stringValue(payload, "field")
		fe, err := c.form.Blur(field)
		if err != nil {
			return err
		}
		if fe != nil {
			c.opts.Recorder.FieldInvalid(fe.Field, fe.Tag)
		}
		return nil

	case EventNext:
		c.next(ctx)
		return nil

	case EventBack:
		if c.form.Step() == Step2Active {
			c.opts.Recorder.StepBack()
		}
		c.form.Back()
		return nil

	case EventSubmit:
		return c.submit(ctx, payload)

	case EventDismissToast:
		c.closeToast()
		return nil

	case EventDismissResult:
		c.form.DismissResult()
		return nil
	}

	return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
}

func (c *Live) next(ctx context.Context) {
	advanced, err := c.form.Next()
	if errors.Is(err, ErrStepIncomplete) {
		errs := c.form.Errors()
		for _, name := range errs.Fields() {
			c.opts.Recorder.FieldInvalid(name, errs[name].Tag)
		}
		c.opts.Recorder.StepRefused()
		c.audit(ctx, audit.EventStepRefused, audit.SeverityInfo, map[string]any{
			"invalid_fields": errs.Fields(),
		})
		return
	}
	if advanced {
		c.opts.Recorder.StepAdvanced()
		c.audit(ctx, audit.EventStepAdvanced, audit.SeverityInfo, nil)
	}
}

func (c *Live) submit(ctx context.Context, payload map[string]any) error {
	values := make(map[string]string, len(payload))
	for _, name := range c.opts.Schema.Fields() {
		if v, ok := payload[name].(string); ok {
			values[name] = v
		}
	}

	in, err := c.form.Submit(values)

	var invalid *FieldInvalidError
	switch {
	case errors.Is(err, ErrSubmitUnreachable):
		c.opts.Recorder.Submission(ResultRefused)
		c.opts.Logger.Debug("submit ignored outside step two")
		return nil

	case errors.As(err, &invalid):
		for _, name := range invalid.Errors.Fields() {
			c.opts.Recorder.FieldInvalid(name, invalid.Errors[name].Tag)
		}
		c.opts.Recorder.Submission(ResultInvalid)
		c.audit(ctx, audit.EventSubmissionRejected, audit.SeverityInfo, map[string]any{
			"reason":         ResultInvalid,
			"invalid_fields": invalid.Errors.Fields(),
		})
		return nil

	case errors.Is(err, ErrPasswordMismatch):
		c.opts.Recorder.Submission(ResultMismatch)
		c.audit(ctx, audit.EventSubmissionRejected, audit.SeverityInfo, map[string]any{
			"reason": ResultMismatch,
		})
		c.openToast()
		return nil

	case err != nil:
		return err
	}

	if err := c.opts.Handoff.Accept(ctx, in); err != nil {
		return fmt.Errorf("signup: handoff: %w", err)
	}
	c.opts.Recorder.Submission(ResultAccepted)
	c.audit(ctx, audit.EventSubmissionAccepted, audit.SeverityInfo, audit.Redact(in.Details()))
	return nil
}

func (c *Live) openToast() {
	c.stopToastTimer()
	c.toastGen++
	if s := c.Socket(); s != nil {
		c.cancelToast = s.SendInfoAfter(c.opts.ToastDuration, toastExpired{gen: c.toastGen})
	}
}

func (c *Live) closeToast() {
	c.stopToastTimer()
	c.form.DismissMismatch()
}

func (c *Live) stopToastTimer() {
	if c.cancelToast != nil {
		c.cancelToast()
		c.cancelToast = nil
	}
}

// HandleInfo implements core.Component.
func (c *Live) HandleInfo(ctx context.Context, msg any) error {
	if t, ok := msg.(toastExpired); ok && t.gen == c.toastGen {
		c.cancelToast = nil
		c.form.DismissMismatch()
	}
	return nil
}

// Terminate implements core.Component.
func (c *Live) Terminate(ctx context.Context, reason core.TerminateReason) error {
	c.stopToastTimer()
	return nil
}

func (c *Live) audit(ctx context.Context, eventType, severity string, details map[string]any) {
	ev := audit.Event{
		EventType:   eventType,
		Severity:    severity,
		ComponentID: c.Name(),
		Details:     details,
	}
	if s := core.SocketFromContext(ctx); s != nil {
		ev.SessionID = s.ID()
	}
	c.opts.Audit.Log(ev)
	c.opts.Logger.WithContext(ctx).Debug("signup event",
		logging.String("event", eventType),
		logging.String("step", c.form.Step().String()),
	)
}

func stringValue(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}
