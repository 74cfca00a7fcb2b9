package main

import (
	"context"
	"io"

	"pkt.systems/pslog"

	"github.com/handydandy/tabstash/internal/appconfig"
	"github.com/handydandy/tabstash/internal/authflow"
	"github.com/handydandy/tabstash/internal/driveapi"
	"github.com/handydandy/tabstash/internal/tabstash"
)

// app wires the persistence layers together for one command invocation:
// a local slot backend, the remote document store behind the session
// state machine, and the worksheet manager on top of the facade.
type app struct {
	cfg     appconfig.Config
	logger  pslog.Logger
	slot    tabstash.SlotBackend
	local   *tabstash.LocalStore
	remote  *tabstash.RemoteStore
	facade  *tabstash.Facade
	oauth   *authflow.OAuthClient
	session *authflow.Manager
	locator *driveapi.Locator
	manager *tabstash.Manager
}

// remoteDocuments adapts the locator and API client to the document
// store the remote backend consumes.
type remoteDocuments struct {
	locator *driveapi.Locator
	client  *driveapi.Client
}

func (d *remoteDocuments) Resolve(ctx context.Context) (string, error) {
	return d.locator.ResolveID(ctx)
}

func (d *remoteDocuments) GetContent(ctx context.Context, documentID string) ([]byte, error) {
	return d.client.GetContent(ctx, documentID)
}

func (d *remoteDocuments) PutContent(ctx context.Context, documentID string, data []byte) error {
	return d.client.PutContent(ctx, documentID, data)
}

// newBackendSwitch builds the hook run on every sign-in and sign-out:
// point the facade at the store matching the session state and reload the
// manager from it, so worksheets from the previous backend never leak
// into the next one's saves.
func newBackendSwitch(ctx context.Context, manager *tabstash.Manager, facade *tabstash.Facade, local *tabstash.LocalStore, remote *tabstash.RemoteStore, locator *driveapi.Locator) func(signedIn bool) {
	return func(signedIn bool) {
		if signedIn {
			facade.Use(remote)
			manager.Load(ctx)
			return
		}
		locator.Invalidate()
		facade.Use(local)
		manager.Load(ctx)
	}
}

func openApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := pslog.Ctx(ctx)

	slot, err := tabstash.BuildSlotBackendFromDSN(cfg.Storage.SlotDSN)
	if err != nil {
		return nil, err
	}
	local := tabstash.NewLocalStore(slot, logger)
	facade := tabstash.NewFacade(local, logger)
	manager := tabstash.NewManager(tabstash.ManagerOptions{Facade: facade, Logger: logger})
	manager.Load(ctx)

	creds, err := authflow.LoadCredentials(cfg.Auth.CredentialsFile)
	if err != nil {
		return nil, err
	}
	oauth := authflow.NewOAuthClient(authflow.OAuthClientOptions{
		TokenURL:     cfg.Auth.TokenURL,
		RevokeURL:    cfg.Auth.RevokeURL,
		UserinfoURL:  cfg.Auth.UserinfoURL,
		ClientID:     cfg.Auth.ClientID,
		Scopes:       cfg.Auth.Scopes,
		RefreshToken: creds.RefreshToken,
	})

	// OnChange fires before the remote store exists during wiring, so it
	// goes through an indirection filled in below.
	var onSwitch func(signedIn bool)
	session := authflow.NewManager(authflow.ManagerOptions{
		Issuer:   oauth,
		Profiles: oauth,
		OnChange: func(signedIn bool) {
			if onSwitch != nil {
				onSwitch(signedIn)
			}
		},
		Logger: logger,
	})

	client := driveapi.NewClient(driveapi.ClientOptions{
		BaseURL:       cfg.Remote.BaseURL,
		UploadBaseURL: cfg.Remote.UploadURL,
		TokenProvider: session.Token,
	})
	locator := driveapi.NewLocator(driveapi.LocatorOptions{
		API:          client,
		DocumentName: cfg.Remote.DocumentName,
		Logger:       logger,
	})
	remote := tabstash.NewRemoteStore(&remoteDocuments{locator: locator, client: client}, logger)

	onSwitch = newBackendSwitch(ctx, manager, facade, local, remote, locator)

	session.APIClientReady()
	session.IssuerReady()

	if oauth.HasCachedCredential() {
		if _, err := session.BeginAuth(ctx); err != nil {
			logger.Warn("silent sign-in failed; staying on local storage", "err", err)
		}
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		slot:    slot,
		local:   local,
		remote:  remote,
		facade:  facade,
		oauth:   oauth,
		session: session,
		locator: locator,
		manager: manager,
	}, nil
}

func (a *app) close() {
	if closer, ok := a.slot.(io.Closer); ok {
		_ = closer.Close()
	}
}
