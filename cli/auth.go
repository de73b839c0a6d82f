package cli

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	username  string
	email     string
	firstName string
	lastName  string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Register, login, and logout of your LitVerse account.`,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password confirmation: %w", err)
		}
		if password != confirm {
			printError("Passwords do not match")
			return fmt.Errorf("passwords do not match")
		}

		client, err := newAPIClient(false)
		if err != nil {
			return err
		}
		var res models.AuthResponse
		err = client.do(http.MethodPost, "/api/auth/register", models.RegisterRequest{
			Username: username, Email: email, Password: password, FirstName: firstName, LastName: lastName,
		}, &res)
		if err != nil {
			printError("Registration failed: " + err.Error())
			if strings.Contains(err.Error(), "already exists") {
				fmt.Printf("Try: litverse auth login --username %s\n", username)
			}
			return fmt.Errorf("registration failed")
		}
		if err := config.UpdateUserToken(res.User.ID, res.User.Username, res.Token); err != nil {
			fmt.Println("Warning: Failed to save token to config")
		}

		printSuccess("Account created successfully!")
		fmt.Printf("User ID: %s\n", res.User.ID)
		fmt.Printf("Username: %s\n", res.User.Username)
		fmt.Printf("Email: %s\n", res.User.Email)
		fmt.Println("\nYou are now logged in!")
		fmt.Println("Try: litverse books search \"dune\"")
		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to your account",
	Long:  `Login to your LitVerse account with username or email.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" && email == "" {
			return fmt.Errorf("username or email is required (--username or --email)")
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		client, err := newAPIClient(false)
		if err != nil {
			return err
		}
		var res models.AuthResponse
		err = client.do(http.MethodPost, "/api/auth/login", models.LoginRequest{
			Username: username, Email: email, Password: password,
		}, &res)
		if err != nil {
			printError("Login failed: " + err.Error())
			return fmt.Errorf("login failed")
		}
		if err := config.UpdateUserToken(res.User.ID, res.User.Username, res.Token); err != nil {
			fmt.Println("Warning: Failed to save token to config")
		}
		printSuccess("Welcome back, " + res.User.Username + "!")
		fmt.Printf("Session expires: %s\n", res.ExpiresAt.Local().Format("2006-01-02 15:04 MST"))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearUserToken(); err != nil {
			printError("Failed to clear session")
			return err
		}
		printSuccess("Logged out")
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var res struct {
			User models.User `json:"user"`
		}
		if err := client.do(http.MethodGet, "/api/auth/me", nil, &res); err != nil {
			printError("Could not load account: " + err.Error())
			return err
		}
		u := res.User
		fmt.Printf("Username: %s\n", u.Username)
		fmt.Printf("Email: %s\n", u.Email)
		if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
			fmt.Printf("Name: %s\n", name)
		}
		fmt.Printf("Reading speed: %d wpm\n", u.ReadingSpeed)
		if len(u.FavoriteGenres) > 0 {
			fmt.Printf("Favourite genres: %s\n", strings.Join(u.FavoriteGenres, ", "))
		}
		return nil
	},
}

var authChangePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change your password",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(true)
		if err != nil {
			return err
		}
		current, err := readPassword("Current password: ")
		if err != nil {
			return err
		}
		next, err := readPassword("New password: ")
		if err != nil {
			return err
		}
		err = client.do(http.MethodPost, "/api/auth/change-password", models.ChangePasswordRequest{
			CurrentPassword: current, NewPassword: next,
		}, nil)
		if err != nil {
			printError("Failed to change password: " + err.Error())
			return fmt.Errorf("password change failed")
		}
		printSuccess("Password changed successfully!")
		return nil
	},
}

func init() {
	authRegisterCmd.Flags().StringVar(&username, "username", "", "Username for registration")
	authRegisterCmd.Flags().StringVar(&email, "email", "", "Email for registration")
	authRegisterCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	authRegisterCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	authRegisterCmd.MarkFlagRequired("username")
	authRegisterCmd.MarkFlagRequired("email")

	authLoginCmd.Flags().StringVar(&username, "username", "", "Username for login")
	authLoginCmd.Flags().StringVar(&email, "email", "", "Email for login")

	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authChangePasswordCmd)
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword hides input on a terminal and falls back to a plain line read
// when stdin is piped.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		return string(b), err
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
