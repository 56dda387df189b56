package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "endura",
	Short: "Endura admin CLI",
	Long:  "A CLI for administering executor records and the dead-man-switch workflow.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig()
		// Env var overrides are applied in newClient()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json, raw")
	rootCmd.PersistentFlags().StringVar(&outputField, "field", "", "Print only this field (use with -format=raw)")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(executorsCmd())
	rootCmd.AddCommand(notificationsCmd())
}

// --- login ---

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Authenticate as an administrator and store the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("Password: ")
			password, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				// Fall back to plain stdin when not a terminal
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Scan()
				password = []byte(strings.TrimSpace(scanner.Text()))
			}

			client := newClient()
			result, err := client.post("/api/login/", map[string]any{
				"email":    args[0],
				"password": string(password),
			})
			if err != nil {
				printError(err.Error())
				return nil
			}
			access, _ := result["access"].(string)
			if access == "" {
				printError("login response contained no access token")
				return nil
			}
			cfg.Token = access
			if err := saveConfig(); err != nil {
				printError(fmt.Sprintf("saving config: %v", err))
				return nil
			}
			fmt.Println("Logged in. Token saved.")
			return nil
		},
	}
}

// --- executors ---

func executorsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "executors", Short: "Inspect and manage executor records"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List executor records",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			path := "/api/admin/executors"
			if status != "" {
				path += "?status=" + status
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			rows, _ := result["executors"].([]any)
			printRows(rows, []string{"id", "name", "email", "status", "verified", "document_ref"})
			return nil
		},
	}
	listCmd.Flags().String("status", "", "Filter by status (Active, Verification_Pending, Access_Granted)")

	notifyCmd := &cobra.Command{
		Use:   "notify <id> [id ...]",
		Short: "Send the dead-man notification to the selected executors",
		Args:  cobra.MinimumNArgs(1),
		RunE:  batchAction("/api/admin/executors/notify"),
	}

	grantCmd := &cobra.Command{
		Use:   "grant-email <id> [id ...]",
		Short: "Re-send the access-granted email (gated on granted + verified)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  batchAction("/api/admin/executors/grant-email"),
	}

	setCmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Edit an executor's status or verified flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if cmd.Flags().Changed("status") {
				status, _ := cmd.Flags().GetString("status")
				body["status"] = status
			}
			if cmd.Flags().Changed("verified") {
				verified, _ := cmd.Flags().GetBool("verified")
				body["verified"] = verified
			}
			if len(body) == 0 {
				printError("nothing to update: pass --status and/or --verified")
				return nil
			}
			client := newClient()
			result, err := client.patch("/api/admin/executors/"+args[0], body)
			if err != nil {
				printError(err.Error())
				return nil
			}
			if warning, ok := result["warning"].(string); ok {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
			}
			if executor, ok := result["executor"].(map[string]any); ok {
				printResult(executor)
			}
			return nil
		},
	}
	setCmd.Flags().String("status", "", "New status (Active, Verification_Pending, Access_Granted)")
	setCmd.Flags().Bool("verified", false, "Set the verified flag")

	cmd.AddCommand(listCmd, notifyCmd, grantCmd, setCmd)
	return cmd
}

func batchAction(path string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				printError(fmt.Sprintf("invalid id %q", arg))
				return nil
			}
			ids = append(ids, id)
		}
		client := newClient()
		result, err := client.post(path, map[string]any{"ids": ids})
		if err != nil {
			printError(err.Error())
			return nil
		}
		fmt.Printf("succeeded: %v, failed: %v\n", result["succeeded"], result["failed"])
		rows, _ := result["results"].([]any)
		printRows(rows, []string{"executor_id", "ok", "detail"})
		return nil
	}
}

// --- notifications ---

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show the notification send log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/admin/notifications"
			params := []string{}
			if id, _ := cmd.Flags().GetString("executor-id"); id != "" {
				params = append(params, "executor_id="+id)
			}
			if kind, _ := cmd.Flags().GetString("kind"); kind != "" {
				params = append(params, "kind="+kind)
			}
			if len(params) > 0 {
				path += "?" + strings.Join(params, "&")
			}
			client := newClient()
			result, err := client.get(path)
			if err != nil {
				printError(err.Error())
				return nil
			}
			rows, _ := result["notifications"].([]any)
			printRows(rows, []string{"id", "executor_id", "kind", "succeeded", "error", "sent_at"})
			return nil
		},
	}
	cmd.Flags().String("executor-id", "", "Filter by executor id")
	cmd.Flags().String("kind", "", "Filter by kind (dead_man_switch, access_granted)")
	return cmd
}
