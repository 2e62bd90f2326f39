package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karim-alweheshy/moaweb/api"
	"github.com/karim-alweheshy/moaweb/dispatch"
	"github.com/karim-alweheshy/moaweb/respfilter"
)

// callCmd dispatches a remote request and prints the decoded reply
var callCmd = &cobra.Command{
	Use:   "call <path>",
	Short: "Dispatch a remote request and print the JSON reply",
	Long: `Dispatch a request to the configured host. On a 401 response the
dispatcher re-authenticates through the login module and retries once.
Array replies can be narrowed with --filter or a preset from the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&reqMethod, "method", "X", http.MethodGet, "HTTP method")
	callCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression applied to array replies")
	callCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	defer dispatcher.Close()
	ctx := context.Background()

	req := dispatch.JSONRequest{Method: strings.ToUpper(reqMethod), Path: args[0]}

	results := make(chan api.Result[json.RawMessage], 1)
	dispatch.DispatchRemote(ctx, dispatcher, req, func(r api.Result[json.RawMessage]) {
		results <- r
	})

	var raw json.RawMessage
	select {
	case r := <-results:
		if !r.Ok() {
			return fmt.Errorf("dispatch failed: %w", r.Err)
		}
		raw = r.Value
	case <-drops:
		return fmt.Errorf("server returned a success reply without a JSON body")
	}

	expr, err := callFilterExpression()
	if err != nil {
		return err
	}
	if expr != "" {
		filtered, err := applyFilter(expr, raw)
		if err != nil {
			return err
		}
		raw = filtered
	}

	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		return fmt.Errorf("failed to parse reply: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// applyFilter narrows a JSON array of objects with an expr predicate.
func applyFilter(expression string, raw json.RawMessage) (json.RawMessage, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("--filter requires an array-of-objects reply: %w", err)
	}

	compiler := respfilter.NewCompiler()
	matched, err := respfilter.Apply(compiler, expression, items)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	if matched == nil {
		matched = []map[string]any{}
	}
	return json.Marshal(matched)
}

// callFilterExpression determines the filter expression to use
func callFilterExpression() (string, error) {
	// Priority: command line filter > preset > default
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if presetFilter, ok := cfg.Filter.Presets[preset]; ok {
			return presetFilter, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return cfg.Filter.DefaultExpression, nil
}

// testCmd checks connectivity to the configured host
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the configured host",
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	fmt.Printf("Testing connection to %s...\n", cfg.Server.URL)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tr.Host()+"/", nil)
	if err != nil {
		return err
	}

	reply, err := tr.Submit(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Printf("✓ Connection successful (status %d)\n", reply.StatusCode)
	fmt.Printf("- Authorized: %v\n", dispatcher.Authorized())
	fmt.Printf("- Auth endpoint: %s\n", cfg.Auth.Endpoint)
	return nil
}
