package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// IngestResult represents one ingested document in the API response.
type IngestResult struct {
	DocumentID  string   `json:"document_id"`
	Symbol      string   `json:"symbol"`
	ChunkIDs    []string `json:"chunk_ids"`
	PricePoints int      `json:"price_points,omitempty"`
	ArchiveKey  string   `json:"archive_key,omitempty"`
}

// IngestBatchResult represents the batch ingest API response.
type IngestBatchResult struct {
	Results []IngestResult `json:"results"`
	Count   int            `json:"count"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest documents from files or stdin",
		Long: `Ingest documents from JSON input (stdin or files).

Each input holds a single document object or a batch under "documents".

Examples:
  # Single news document from stdin
  echo '{"symbol":"AAPL","source":"news","title":"Earnings beat","body":"...","published_at":"2024-06-10T14:30:00Z"}' | finsight ingest

  # Batch from a file
  finsight ingest filings.json

  # Daily bars as a price_series document
  finsight ingest aapl-prices.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, args, outputJSON)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, files []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		return ingestPayload(api, "stdin", input, outputJSON)
	}

	for _, file := range files {
		input, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		if err := ingestPayload(api, file, input, outputJSON); err != nil {
			return err
		}
	}

	return nil
}

func ingestPayload(api *APIClient, name string, input []byte, outputJSON bool) error {
	if len(input) == 0 {
		return fmt.Errorf("no input provided")
	}
	if !json.Valid(input) {
		return fmt.Errorf("%s is not valid JSON", name)
	}

	resp, err := api.Post("/v1/documents", json.RawMessage(input))
	if err != nil {
		return fmt.Errorf("ingest failed for %s: %w", name, err)
	}

	// A batch response carries results; a single ingest is a bare result.
	var batch IngestBatchResult
	if err := json.Unmarshal(resp.Data, &batch); err == nil && len(batch.Results) > 0 {
		if outputJSON {
			output, _ := json.MarshalIndent(batch, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		fmt.Printf("Ingested %d documents from %s\n", batch.Count, name)
		for _, result := range batch.Results {
			printIngestResult("  ", result)
		}
		return nil
	}

	var result IngestResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse ingest response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	printIngestResult("", result)
	return nil
}

func printIngestResult(indent string, r IngestResult) {
	line := fmt.Sprintf("%sIngested %s (%s):", indent, r.DocumentID, r.Symbol)
	if len(r.ChunkIDs) > 0 {
		line += fmt.Sprintf(" %d chunks", len(r.ChunkIDs))
	}
	if r.PricePoints > 0 {
		line += fmt.Sprintf(" %d price points", r.PricePoints)
	}
	if r.ArchiveKey != "" {
		line += fmt.Sprintf(" archived as %s", r.ArchiveKey)
	}
	fmt.Println(line)
}
