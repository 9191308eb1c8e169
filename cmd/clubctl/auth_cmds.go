package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"clubhub-go/internal/session"

	"github.com/spf13/cobra"
)

func printSignedIn(w io.Writer, u *session.User, route string) {
	fmt.Fprintf(w, "Signed in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
	fmt.Fprintf(w, "Landing route: %s\n", route)
}

func passwordFrom(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("CLUBHUB_PASSWORD")
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password = passwordFrom(password)
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or CLUBHUB_PASSWORD) are required")
			}
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			user, err := svc.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			printSignedIn(cmd.OutOrStdout(), user, a.routes.CurrentRoute())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (defaults to $CLUBHUB_PASSWORD)")
	cmd.AddCommand(newLoginGoogleCmd(a))
	return cmd
}

func newLoginGoogleCmd(a *app) *cobra.Command {
	var code, state, idToken string
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Complete a Google sign-in started with google-url, or sign in with an ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			var user *session.User
			switch {
			case idToken != "":
				user, err = svc.LoginWithGoogle(cmd.Context(), idToken)
			case code != "" && state != "":
				user, err = svc.ExchangeGoogleCode(cmd.Context(), code, state)
			default:
				return fmt.Errorf("either --id-token or both --code and --state are required")
			}
			if err != nil {
				return err
			}
			printSignedIn(cmd.OutOrStdout(), user, a.routes.CurrentRoute())
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the Google redirect")
	cmd.Flags().StringVar(&state, "state", "", "State printed by google-url")
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token obtained elsewhere")
	return cmd
}

func newGoogleURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "google-url",
		Short: "Print the Google consent URL for a new sign-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			url, state, err := svc.GoogleAuthURL(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, url)
			fmt.Fprintf(out, "\nAfter consenting run:\n  clubctl login google --state %s --code <code>\n", state)
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var in session.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Password = passwordFrom(in.Password)
			if in.Name == "" || in.Email == "" || in.Password == "" {
				return fmt.Errorf("--name, --email and --password are required")
			}
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			user, err := svc.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			printSignedIn(cmd.OutOrStdout(), user, a.routes.CurrentRoute())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name")
	cmd.Flags().StringVarP(&in.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Account password (defaults to $CLUBHUB_PASSWORD)")
	cmd.Flags().StringVar(&in.Role, "role", "", "player or coach")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			var user *session.User
			if remote {
				user, err = svc.Refresh(cmd.Context())
			} else {
				user, err = svc.Current(cmd.Context())
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\nrole: %s\nid: %s\n", user.Name, user.Email, user.Role, user.ID)
			if user.ClubID != "" {
				fmt.Fprintf(out, "club: %s\n", user.ClubID)
			}
			if claims, err := svc.Claims(cmd.Context()); err == nil && !claims.ExpiresAt.IsZero() {
				state := "valid"
				if claims.Expired(time.Now()) {
					state = "expired, renews on next request"
				}
				fmt.Fprintf(out, "token expires: %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the profile from the backend instead of the local store")
	return cmd
}
