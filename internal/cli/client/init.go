package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store daemon credentials",
		Long:  "Verifies the API key against the daemon and stores it in the global config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(apiKey, apiURL string, outputJSON bool) error {
	_ = godotenv.Load()

	apiKey = firstNonEmpty(apiKey, os.Getenv(envAPIKey))
	if apiKey == "" {
		key, err := promptAPIKey()
		if err != nil {
			return err
		}
		apiKey = key
	}
	apiURL = firstNonEmpty(apiURL, os.Getenv(envAPIURL), defaultAPIURL)

	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	// Round-trip against an authenticated route before persisting anything
	if _, err := api.Get("/v1/symbols?limit=1"); err != nil {
		return fmt.Errorf("failed to reach daemon at %s: %w", apiURL, err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"api_key": maskAPIKey(apiKey),
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Connected to %s\n", apiURL)
	fmt.Printf("Credentials saved to %s\n", configPath)
	return nil
}

func promptAPIKey() (string, error) {
	fmt.Print("Enter API key (leave blank if the daemon runs without one): ")
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(input), nil
}
