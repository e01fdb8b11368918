package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/briandowns/spinner"

	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/runtime"
)

// Submitter starts one conversation turn and streams its events back.
// *runtime.Runner satisfies it.
type Submitter interface {
	Run(ctx context.Context, sessionID string, msg *runtime.Content) (<-chan *runtime.Event, error)
}

// Prompter reads one line from the user under the given prompt. The driver
// uses it for the callback URL paste-back.
type Prompter func(prompt string) (string, error)

// TurnDriver runs conversation turns against a single session: it prints
// streamed agent text, and when a turn suspends on a credential request it
// presents the authorization instructions and resumes the turn with the
// callback URL the user pastes.
type TurnDriver struct {
	runner    Submitter
	sessionID string
	out       io.Writer
	prompt    Prompter
	spin      *spinner.Spinner
	logger    *slog.Logger
}

// DriverOption customizes a TurnDriver.
type DriverOption func(*TurnDriver)

// WithSpinner animates s while the runtime is working between a submission
// and its first event.
func WithSpinner(s *spinner.Spinner) DriverOption {
	return func(d *TurnDriver) { d.spin = s }
}

// NewTurnDriver builds a driver that submits turns for the given session,
// writes agent output to out and reads consent paste-backs through prompt.
func NewTurnDriver(runner Submitter, sessionID string, out io.Writer, prompt Prompter, opts ...DriverOption) *TurnDriver {
	d := &TurnDriver{
		runner:    runner,
		sessionID: sessionID,
		out:       out,
		prompt:    prompt,
		logger:    logging.WithComponent(slog.Default(), "console"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Turn runs one user message to completion, including the consent handshake
// if the turn suspends on a credential request.
func (d *TurnDriver) Turn(ctx context.Context, text string) error {
	authReq, err := d.stream(ctx, runtime.NewUserContent(text))
	if err != nil {
		return err
	}
	if authReq == nil {
		fmt.Fprintln(d.out)
		return nil
	}
	return d.authenticate(ctx, authReq)
}

// stream submits msg and prints streamed agent text until the stream ends
// or a credential request arrives. On a credential request the remainder of
// the stream is abandoned; the suspended state lives in the runner, not in
// the stream.
func (d *TurnDriver) stream(ctx context.Context, msg *runtime.Content) (*runtime.FunctionCall, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := d.runner.Run(ctx, d.sessionID, msg)
	if err != nil {
		return nil, err
	}

	d.startSpinner()
	defer d.stopSpinner()

	prefixed := false
	for ev := range events {
		d.stopSpinner()
		if ev.Err != nil {
			return nil, ev.Err
		}
		if !prefixed {
			fmt.Fprint(d.out, "\nAgent > ")
			prefixed = true
		}
		if text := ev.Content.Text(); text != "" {
			fmt.Fprint(d.out, text)
		}
		if fc := ev.CredentialRequest(); fc != nil {
			return fc, nil
		}
	}
	return nil, nil
}

// authenticate walks the user through the consent handshake for the given
// credential request and streams the resumed turn. A blank paste-back
// cancels: the turn stays suspended and nothing is exchanged.
func (d *TurnDriver) authenticate(ctx context.Context, authReq *runtime.FunctionCall) error {
	spec, err := runtime.ParseCredentialRequest(authReq)
	if err != nil {
		return err
	}
	authURI, err := consentURL(spec.AuthURI, google.DefaultRedirectURI)
	if err != nil {
		return err
	}

	fmt.Fprintln(d.out, "\n\n--- AUTHENTICATION REQUIRED ---")
	fmt.Fprintf(d.out, "\n1. Open this URL in your browser:\n\n   %s\n\n", authURI)
	fmt.Fprintln(d.out, "2. Sign in and grant permissions.")
	fmt.Fprintln(d.out, "3. Copy the ENTIRE URL from your browser's address bar after redirection.")

	callbackURL, err := d.prompt("\n4. Paste the full callback URL here and press Enter:\n> ")
	if err != nil {
		return err
	}
	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		fmt.Fprintln(d.out, "Authentication cancelled.")
		d.logger.Debug("consent handshake cancelled", logging.Session(d.sessionID))
		return nil
	}

	resume, err := runtime.NewCredentialResponse(authReq.ID, callbackURL, google.DefaultRedirectURI)
	if err != nil {
		return err
	}

	// One consent handshake per turn. A further credential request in the
	// resumed stream ends the turn like an ordinary stream end.
	if _, err := d.stream(ctx, runtime.NewFunctionResponseContent(resume)); err != nil {
		return err
	}
	fmt.Fprintln(d.out)
	return nil
}

func (d *TurnDriver) startSpinner() {
	if d.spin != nil {
		d.spin.Start()
	}
}

func (d *TurnDriver) stopSpinner() {
	if d.spin != nil {
		d.spin.Stop()
	}
}

// consentURL appends the redirect_uri parameter to the authorization URI of
// a credential request. The URI always carries query parameters already, so
// a plain ampersand join is enough.
func consentURL(authURI, redirectURI string) (string, error) {
	if authURI == "" {
		return "", fmt.Errorf("credential request carries no authorization URI")
	}
	params := url.Values{"redirect_uri": {redirectURI}}
	return authURI + "&" + params.Encode(), nil
}
