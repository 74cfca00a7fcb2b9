package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handydandy/tabstash/internal/authflow"
)

func newLoginCmd(cfgPath *string) *cobra.Command {
	var tokenFromStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and switch persistence to the remote document",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			if tokenFromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token := strings.TrimSpace(string(data))
				if token == "" {
					return errors.New("refresh token from stdin is empty")
				}
				a.oauth.SetRefreshToken(token)
				if err := authflow.SaveCredentials(a.cfg.Auth.CredentialsFile, authflow.Credentials{RefreshToken: token}); err != nil {
					return err
				}
			}

			identity, err := a.session.BeginAuth(cmd.Context())
			if err != nil {
				return err
			}
			printIdentity(cmd, identity)
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokenFromStdin, "token-from-stdin", false, "read a refresh token from stdin and cache it")
	return cmd
}

func newLogoutCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and switch persistence back to local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			a.session.EndAuth(cmd.Context())
			if err := authflow.ClearCredentials(a.cfg.Auth.CredentialsFile); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show session state and the active persistence backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "state: %s\n", a.session.State())
			_, _ = fmt.Fprintf(out, "backend: %s\n", a.facade.Backend().Kind())
			if identity, ok := a.session.Identity(); ok {
				printIdentity(cmd, identity)
			}
			return nil
		},
	}
}

func printIdentity(cmd *cobra.Command, identity authflow.Identity) {
	out := cmd.OutOrStdout()
	if identity.Name != "" {
		_, _ = fmt.Fprintf(out, "name: %s\n", identity.Name)
	}
	if identity.Email != "" {
		_, _ = fmt.Fprintf(out, "email: %s\n", identity.Email)
	}
}
