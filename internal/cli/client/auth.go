package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// LogoutCmd creates the logout command
func LogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		Long:  "Remove stored credentials from global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Println("Credentials cleared")
			return nil
		},
	}
}

// StatusCmd creates the status command
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Display current authentication source and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStatus(outputJSON)
		},
	}
}

type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Source        string `json:"source"`
	APIKey        string `json:"api_key,omitempty"`
	APIURL        string `json:"api_url,omitempty"`
}

func runStatus(outputJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource("", "")

	status := authStatus{
		Authenticated: source != SourceNone,
		Source:        string(source),
	}
	if status.Authenticated {
		status.APIKey = maskAPIKey(apiKey)
		status.APIURL = apiURL
	}

	if outputJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if !status.Authenticated {
		fmt.Println("Not authenticated")
		fmt.Println("Run 'finsight init' to store credentials")
		return nil
	}

	fmt.Println("Authenticated: yes")
	fmt.Printf("Source: %s\n", status.Source)
	fmt.Printf("API Key: %s\n", status.APIKey)
	fmt.Printf("API URL: %s\n", status.APIURL)
	return nil
}
