// Package portal implements the secondary extraction path: an interactive
// chromedp session against the publisher's web portal, used only for
// periods the spreadsheet path cannot parse. One authenticated session is
// shared across every period queued for fallback within a run.
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"

	"indexcli/internal/family"
	"indexcli/pkg/contracts/domain"
)

// State names one step of the interactive session's lifecycle.
type State string

const (
	StateLoggedOut      State = "logged_out"
	StateAuthenticating State = "authenticating"
	StateFormReady      State = "form_ready"
	StateFiltered       State = "filtered"
	StateRowLocated     State = "row_located"
	StateParsed         State = "parsed"
)

// Portal page selectors. The portal has been stable on these for years;
// they are constants rather than configuration.
const (
	loginPath       = "/portal/login.html?lang=en"
	selUserField    = `input[name="username"]`
	selPassField    = `input[name="password"]`
	selLoginSubmit  = `#loginForm input[type="submit"]`
	selUserPanel    = `#userPanel`
	selYearSelect   = `#year`
	selMonthSelect  = `#month`
	selRegionSelect = `#region`
	selReportSelect = `#reporttype`
	selSearchSubmit = `#searchForm input[type="submit"]`
)

// resultRowsJS collects the text of every result row. The table renders
// asynchronously inside an embedded frame after the filter submit.
const resultRowsJS = `(() => {
	const frame = document.querySelector('#resultFrame');
	const doc = frame && frame.contentDocument ? frame.contentDocument : document;
	return Array.from(doc.querySelectorAll('#report tbody tr'))
		.map(tr => tr.innerText.trim())
		.filter(Boolean);
})()`

// Config carries the portal endpoint, credentials, and timing knobs.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Headless bool
	// ConfirmTimeout bounds the wait for the post-login confirmation
	// widget.
	ConfirmTimeout time.Duration
	// SettleDelay is the fixed wait for the asynchronous result table
	// render after a filter submit.
	SettleDelay time.Duration
}

func (c Config) confirmTimeout() time.Duration {
	if c.ConfirmTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ConfirmTimeout
}

func (c Config) settleDelay() time.Duration {
	if c.SettleDelay <= 0 {
		return 3 * time.Second
	}
	return c.SettleDelay
}

// Session is one browser session against the portal. It is exclusively
// owned by a coordinator for the duration of its secondary pass and must
// be closed before the run returns.
type Session struct {
	cfg    Config
	logger *slog.Logger

	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc

	state    State
	loggedIn bool
}

// NewSession allocates a browser context. The browser itself starts
// lazily on the first navigation.
func NewSession(cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	return &Session{
		cfg:         cfg,
		logger:      logger,
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		state:       StateLoggedOut,
	}
}

// Close tears the browser down. Safe to call more than once.
func (s *Session) Close() error {
	if s.cancelCtx != nil {
		s.cancelCtx()
		s.cancelCtx = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	s.state = StateLoggedOut
	s.loggedIn = false
	return nil
}

// linkedContext derives a cancellable child of the browser context that
// is also cancelled when the caller's context ends. chromedp actions must
// run on the browser context, so the caller's context cannot be passed
// through directly.
func linkedContext(browser, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(browser)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// run executes chromedp actions on the browser, honoring ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := linkedContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) transition(to State) {
	s.logger.Debug("portal session transition",
		slog.String("from", string(s.state)),
		slog.String("to", string(to)))
	s.state = to
}

// Login navigates to the portal, submits the credential form, and waits
// for the post-login confirmation widget within a bounded timeout.
func (s *Session) Login(ctx context.Context) error {
	s.transition(StateAuthenticating)

	loginURL := s.cfg.BaseURL + loginPath
	err := s.run(ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(selUserField, chromedp.ByQuery),
		chromedp.WaitVisible(selPassField, chromedp.ByQuery),
		chromedp.SendKeys(selUserField, s.cfg.Username, chromedp.ByQuery),
		chromedp.SendKeys(selPassField, s.cfg.Password, chromedp.ByQuery),
		chromedp.Click(selLoginSubmit, chromedp.ByQuery),
	)
	if err != nil {
		s.transition(StateLoggedOut)
		return &NavigationError{State: StateAuthenticating, Step: "submit credentials", Cause: err}
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.confirmTimeout())
	defer cancel()
	if err := s.run(confirmCtx, chromedp.WaitVisible(selUserPanel, chromedp.ByQuery)); err != nil {
		s.transition(StateLoggedOut)
		return &AuthenticationError{Message: "confirmation widget never appeared", Cause: err}
	}

	s.loggedIn = true
	s.transition(StateFormReady)
	s.logger.Info("portal session authenticated", slog.String("portal", s.cfg.BaseURL))
	return nil
}

// Fetch filters the portal's result table by period and region for one
// family and parses the matching row into a canonical record.
func (s *Session) Fetch(ctx context.Context, spec family.Spec, p domain.Period, r domain.RegionCode) (*domain.CanonicalRecord, error) {
	if !s.loggedIn {
		if err := s.Login(ctx); err != nil {
			return nil, err
		}
	}

	err := s.run(ctx,
		chromedp.WaitVisible(selYearSelect, chromedp.ByQuery),
		chromedp.SetValue(selYearSelect, strconv.Itoa(p.Year), chromedp.ByQuery),
		chromedp.SetValue(selMonthSelect, fmt.Sprintf("%02d", p.Month), chromedp.ByQuery),
		chromedp.SetValue(selRegionSelect, r.String(), chromedp.ByQuery),
		chromedp.SetValue(selReportSelect, spec.PortalReportCode, chromedp.ByQuery),
		chromedp.Click(selSearchSubmit, chromedp.ByQuery),
		chromedp.Sleep(s.cfg.settleDelay()),
	)
	if err != nil {
		return nil, &NavigationError{State: StateFormReady, Step: "submit filter", Cause: err}
	}
	s.transition(StateFiltered)

	var rows []string
	if err := s.run(ctx, chromedp.Evaluate(resultRowsJS, &rows)); err != nil {
		return nil, &NavigationError{State: StateFiltered, Step: "read result table", Cause: err}
	}

	rec, err := parseResultRows(rows, spec, p, r)
	if err != nil {
		return nil, err
	}
	s.transition(StateRowLocated)

	s.transition(StateParsed)
	s.logger.Info("portal row parsed",
		slog.String("family", spec.ID),
		slog.String("period", p.String()),
		slog.String("region", r.String()))

	// Ready for the next queued period on the same login.
	s.transition(StateFormReady)
	return rec, nil
}
