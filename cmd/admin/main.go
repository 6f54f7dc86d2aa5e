package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	apiAddr string
	token   string
)

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Administrative CLI for the transit API server",
	Long:         "Invokes the API server's admin endpoints (currently just the ISS reload trigger).",
	SilenceUsage: true,
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Trigger an ISS reload via POST /admin/reload",
	RunE:  runReload,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://localhost:8080", "API server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("ADMIN_TOKEN"), "admin token (defaults to $ADMIN_TOKEN)")
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	if token == "" {
		return fmt.Errorf("no admin token: set --token or ADMIN_TOKEN")
	}

	req, err := http.NewRequest(http.MethodPost, apiAddr+"/admin/reload", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Token", token)

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Println(string(body))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reload failed: %s", resp.Status)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
