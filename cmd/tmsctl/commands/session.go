package commands

import (
	"fmt"
	"log/slog"
	"os"
	"tmsassist/internal/components/serviceutil"

	"github.com/spf13/cobra"
)

var loginPassword *string

func init() {
	loginPassword = loginCmd.Flags().StringP("password", "p", "", "The portal password, defaults to $TMS_PASSWORD.")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(cookieCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <username> [--password <password>]",
	Short: "Logs into the portal and remembers the session.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		password := *loginPassword
		if password == "" {
			password = os.Getenv("TMS_PASSWORD")
		}
		if password == "" {
			serviceutil.Fatal("failed to login", fmt.Errorf("no password, pass --password or set TMS_PASSWORD"))
		}

		sess, err := a.service.Login(cmd.Context(), args[0], password)
		if err != nil {
			serviceutil.Fatal("failed to login", err)
		}
		slog.Info("logged in", "username", sess.Username, "profile", a.service.Profile())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forgets the session of the current profile.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		err := a.service.Logout(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to logout", err)
		}
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Prints the user name the portal dashboard shows for the current session.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		username, err := a.service.Whoami(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read dashboard", err)
		}
		fmt.Println(username)
	},
}

var cookieCmd = &cobra.Command{
	Use:   "cookie",
	Short: "Prints the cookie string of the current session.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		cookie, err := a.service.Cookie(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read session", err)
		}
		fmt.Println(cookie)
	},
}
