package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"
)

var (
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotInitialized = errors.New("session manager not initialized")
	ErrNotSignedIn    = errors.New("not signed in")
)

// AuthError reports a credential issuance or revocation failure.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// State is the session lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// PromptMode selects between first-time consent and silent re-auth.
type PromptMode string

const (
	PromptConsent PromptMode = "consent"
	PromptNone    PromptMode = "none"
)

// Credential is the bearer token gating remote operations.
type Credential struct {
	Token  string
	Expiry time.Time
}

// Identity is the lightweight profile shown next to the signed-in state.
type Identity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// PlaceholderIdentity stands in when the profile fetch fails; sign-in
// still succeeds so the application stays usable.
var PlaceholderIdentity = Identity{Name: "Signed-in User"}

// TokenIssuer is the external identity subsystem that mints and revokes
// bearer credentials.
type TokenIssuer interface {
	RequestToken(ctx context.Context, prompt PromptMode) (Credential, error)
	Revoke(ctx context.Context, cred Credential) error
	HasCachedCredential() bool
}

// ProfileFetcher resolves the identity behind a credential.
type ProfileFetcher interface {
	Fetch(ctx context.Context, cred Credential) (Identity, error)
}

// Manager owns the process-wide session: the bearer credential, the
// signed-in identity, and the state machine gating remote persistence.
type Manager struct {
	mu          sync.Mutex
	state       State
	apiReady    bool
	issuerReady bool
	issuer      TokenIssuer
	profiles    ProfileFetcher
	cred        Credential
	identity    Identity
	hasIdentity bool
	onChange    func(signedIn bool)
	logger      pslog.Logger
}

type ManagerOptions struct {
	Issuer   TokenIssuer
	Profiles ProfileFetcher
	// OnChange fires outside the manager lock after every sign-in and
	// sign-out, so the persistence backend can be swapped once per session.
	OnChange func(signedIn bool)
	Logger   pslog.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Manager{
		state:    StateUninitialized,
		issuer:   opts.Issuer,
		profiles: opts.Profiles,
		onChange: opts.OnChange,
		logger:   logger,
	}
}

// APIClientReady records that the remote API client bootstrap finished.
// The manager leaves UNINITIALIZED only when both bootstraps have
// reported in; either may finish first, and the transition happens
// exactly once.
func (m *Manager) APIClientReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiReady = true
	m.maybeReadyLocked()
}

// IssuerReady records that the identity/token-issuance bootstrap finished.
func (m *Manager) IssuerReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issuerReady = true
	m.maybeReadyLocked()
}

func (m *Manager) maybeReadyLocked() {
	if m.state == StateUninitialized && m.apiReady && m.issuerReady {
		m.state = StateReady
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) SignedIn() bool {
	return m.State() == StateAuthenticated
}

func (m *Manager) Identity() (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.hasIdentity
}

// Token hands out the current bearer credential; it is the TokenProvider
// remote clients run on.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return "", ErrNotSignedIn
	}
	return m.cred.Token, nil
}

// BeginAuth requests a credential from the identity subsystem and fetches
// the profile. Consent is requested only when the issuer has nothing
// cached. A profile fetch failure does not fail sign-in; a placeholder
// identity is substituted. An issuance failure clears the session
// entirely, never leaving half-authenticated state.
func (m *Manager) BeginAuth(ctx context.Context) (Identity, error) {
	m.mu.Lock()
	switch m.state {
	case StateUninitialized:
		m.mu.Unlock()
		return Identity{}, ErrNotInitialized
	case StateAuthenticated:
		identity := m.identity
		m.mu.Unlock()
		return identity, nil
	case StateAuthenticating:
		m.mu.Unlock()
		return Identity{}, &AuthError{Op: "begin", Err: errors.New("authentication already in progress")}
	}
	m.state = StateAuthenticating
	issuer := m.issuer
	m.mu.Unlock()

	prompt := PromptConsent
	if issuer.HasCachedCredential() {
		prompt = PromptNone
	}
	cred, err := issuer.RequestToken(ctx, prompt)
	if err != nil {
		m.clear()
		return Identity{}, &AuthError{Op: "begin", Err: err}
	}

	identity := PlaceholderIdentity
	if m.profiles != nil {
		fetched, fetchErr := m.profiles.Fetch(ctx, cred)
		if fetchErr != nil {
			m.logger.Warn("profile fetch failed, using placeholder identity", "err", fetchErr)
		} else {
			identity = fetched
		}
	}

	m.mu.Lock()
	m.cred = cred
	m.identity = identity
	m.hasIdentity = true
	m.state = StateAuthenticated
	onChange := m.onChange
	m.mu.Unlock()

	m.logger.Info("signed in", "email", identity.Email)
	if onChange != nil {
		onChange(true)
	}
	return identity, nil
}

// EndAuth revokes the credential best-effort and clears the session. A
// failed remote revocation is logged and never blocks local sign-out.
func (m *Manager) EndAuth(ctx context.Context) {
	m.mu.Lock()
	cred := m.cred
	hadCred := cred.Token != ""
	issuer := m.issuer
	m.mu.Unlock()

	if hadCred && issuer != nil {
		if err := issuer.Revoke(ctx, cred); err != nil {
			m.logger.Warn("credential revocation failed, clearing session anyway", "err", err)
		}
	}
	m.clear()
	m.logger.Info("signed out")
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.cred = Credential{}
	m.identity = Identity{}
	m.hasIdentity = false
	if m.state != StateUninitialized {
		m.state = StateReady
	}
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange(false)
	}
}
