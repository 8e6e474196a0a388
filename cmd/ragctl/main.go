package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   int
)

func main() {
	root := &cobra.Command{
		Use:   "ragctl",
		Short: "Client for the corrective-rag server",
	}
	root.PersistentFlags().StringVar(&serverURL, "server", envOr("RAGCTL_SERVER", "http://localhost:8090"), "server base URL")
	root.PersistentFlags().IntVar(&timeout, "timeout", 120, "request timeout in seconds")

	root.AddCommand(newQueryCmd(), newSearchCmd(), newIngestCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(timeout) * time.Second}
}

func newQueryCmd() *cobra.Command {
	var (
		k           int
		threshold   float64
		noWeb       bool
		diagnostics bool
	)

	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question through the corrective pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"question":           args[0],
				"return_diagnostics": diagnostics,
			}
			if k > 0 {
				body["k"] = k
			}
			if cmd.Flags().Changed("threshold") {
				body["relevance_threshold"] = threshold
			}
			if noWeb {
				useWeb := false
				body["use_web_search"] = useWeb
			}
			return postAndPrint("/v1/query", body)
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "number of documents to retrieve")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.7, "relevance threshold override")
	cmd.Flags().BoolVar(&noWeb, "no-web", false, "disable the web-search fallback")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "include pipeline diagnostics")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run a raw similarity search without grading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{"query": args[0]}
			if k > 0 {
				body["k"] = k
			}
			return postAndPrint("/v1/search", body)
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "number of chunks to return")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Queue a document file for indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			if source == "" {
				source = args[0]
			}
			return postAndPrint("/v1/documents", map[string]interface{}{
				"source":  source,
				"content": string(content),
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source identifier (defaults to the file path)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index size and configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := httpClient().Get(serverURL + "/v1/status")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			return printResponse(resp)
		},
	}
}

func postAndPrint(path string, body map[string]interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := httpClient().Post(serverURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
