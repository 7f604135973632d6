package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"grant-portal/internal/auth"
	"grant-portal/internal/common/errors"

	"github.com/spf13/cobra"
)

func newLoginCommand(g *globals) *cobra.Command {
	var email string
	var asAdmin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				if email == "" {
					var err error
					if email, err = g.prompter.Input("Email", "", ""); err != nil {
						return err
					}
				}
				password, err := g.prompter.Password("Password")
				if err != nil {
					return err
				}

				creds := auth.Credentials{Email: email, Password: password}
				var sess *auth.Session
				if asAdmin {
					sess, err = a.auth.AdminLogin(ctx, creds)
				} else {
					sess, err = a.auth.Login(ctx, creds)
				}
				if err != nil {
					printFieldErrors(g.out, err)
					return err
				}

				name := sess.User.FullName()
				if name == "" {
					name = sess.User.Email
				}
				fmt.Fprintf(g.out, "Logged in as %s\n", name)
				if !sess.ExpiresAt.IsZero() {
					fmt.Fprintf(g.out, "Session valid until %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (asked when omitted)")
	cmd.Flags().BoolVar(&asAdmin, "admin", false, "log in as an administrator")
	return cmd
}

func newLogoutCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.auth.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(g.out, "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.auth.Profile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(g.out, "%s <%s>\n", user.FullName(), user.Email)
				if user.Role != "" {
					fmt.Fprintf(g.out, "Role: %s\n", user.Role)
				}
				return nil
			})
		},
	}
}

func newRegisterCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an applicant account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				var form auth.RegistrationForm
				inputs := []struct {
					label string
					dst   *string
				}{
					{"First name", &form.FirstName},
					{"Last name", &form.LastName},
					{"Email", &form.Email},
					{"Primary phone", &form.PrimaryPhone},
					{"Mobile phone (optional)", &form.MobilePhone},
				}
				for _, in := range inputs {
					v, err := g.prompter.Input(in.label, "", "")
					if err != nil {
						return err
					}
					*in.dst = v
				}
				var err error
				if form.Password, err = g.prompter.Password("Password"); err != nil {
					return err
				}
				if form.ConfirmPassword, err = g.prompter.Password("Confirm password"); err != nil {
					return err
				}

				msg, err := a.auth.Register(ctx, form)
				if err != nil {
					printFieldErrors(g.out, err)
					return err
				}
				fmt.Fprintln(g.out, msg)
				return nil
			})
		},
	}
}

func newForgotPasswordCommand(g *globals) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				if email == "" {
					var err error
					if email, err = g.prompter.Input("Email", "", ""); err != nil {
						return err
					}
				}
				msg, err := a.auth.ForgotPassword(ctx, email)
				if err != nil {
					printFieldErrors(g.out, err)
					return err
				}
				fmt.Fprintln(g.out, msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (asked when omitted)")
	return cmd
}

func newResetPasswordCommand(g *globals) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from the reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				password, err := g.prompter.Password("New password")
				if err != nil {
					return err
				}
				confirm, err := g.prompter.Password("Confirm new password")
				if err != nil {
					return err
				}
				msg, err := a.auth.ResetPassword(ctx, token, password, confirm)
				if err != nil {
					printFieldErrors(g.out, err)
					return err
				}
				fmt.Fprintln(g.out, msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// printFieldErrors lists per-field messages carried by a
// FIELD_VALIDATION_FAILED error.
func printFieldErrors(w io.Writer, err error) {
	se, ok := errors.AsStandardError(err)
	if !ok || se.Code != errors.ErrCodeFieldValidationFailed {
		return
	}
	fields, _ := se.Metadata["errors"].(map[string]string)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  ! %s: %s\n", name, fields[name])
	}
}
