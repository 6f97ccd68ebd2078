package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kernel-workspace-be/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		server  string
		persona string
		wait    time.Duration
	)

	root := &cobra.Command{
		Use:           "kernelctl",
		Short:         "Talk to a running kernel workspace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", envOr("KERNEL_URL", "http://localhost:8000/api"), "kernel base URL")
	root.PersistentFlags().DurationVar(&wait, "wait", 0, "wait up to this long for the kernel to come up")

	client := func() (*apiClient, error) {
		c := newAPIClient(server)
		if wait > 0 {
			if err := c.waitHealthy(wait); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			return runAsk(cmd, c, strings.Join(args, " "), persona)
		},
	}
	askCmd.Flags().StringVar(&persona, "persona", "", "answering persona (default, coder, researcher)")

	var analyze bool
	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload and index a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			body, err := c.upload(args[0])
			if err != nil {
				return err
			}
			printJSON(cmd, body)
			if !analyze {
				return nil
			}
			color.Cyan("\nAnalyzing %s...", filepath.Base(args[0]))
			return runAsk(cmd, c, service.AutoAnalysisPrompt(filepath.Base(args[0])), persona)
		},
	}
	uploadCmd.Flags().BoolVar(&analyze, "analyze", false, "ask the kernel to analyze the file after indexing")
	uploadCmd.Flags().StringVar(&persona, "persona", "", "persona used for --analyze")

	commandCmd := &cobra.Command{
		Use:   "command",
		Short: "Stage, approve or cancel a shell command",
	}
	commandCmd.AddCommand(
		&cobra.Command{
			Use:   "request <question>",
			Short: "Have the model propose a command and stage it",
			Args:  cobra.MinimumNArgs(1),
			RunE: jsonCall(client, http.MethodPost, "/request_command", func(args []string) interface{} {
				return map[string]string{"question": strings.Join(args, " ")}
			}),
		},
		&cobra.Command{
			Use:   "approve",
			Short: "Run the staged command",
			Args:  cobra.NoArgs,
			RunE:  jsonCall(client, http.MethodPost, "/approve_command", nil),
		},
		&cobra.Command{
			Use:   "cancel",
			Short: "Discard the staged command",
			Args:  cobra.NoArgs,
			RunE:  jsonCall(client, http.MethodPost, "/cancel_command", nil),
		},
	)

	var language string
	executeCmd := &cobra.Command{
		Use:   "execute <file>",
		Short: "Run a python or java snippet in the sandbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lang := language
			if lang == "" {
				lang = languageFromExt(args[0])
			}
			return jsonCall(client, http.MethodPost, "/execute", func([]string) interface{} {
				return map[string]string{"code": string(code), "language": lang}
			})(cmd, args)
		},
	}
	executeCmd.Flags().StringVar(&language, "language", "", "python or java (default: from file extension)")

	root.AddCommand(
		askCmd,
		uploadCmd,
		commandCmd,
		executeCmd,
		&cobra.Command{
			Use:   "commit <question>",
			Short: "Save the last answer to a question as a verified solution",
			Args:  cobra.MinimumNArgs(1),
			RunE: jsonCall(client, http.MethodPost, "/commit_memory", func(args []string) interface{} {
				return map[string]string{"question": strings.Join(args, " ")}
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget conversation history and the workspace",
			Args:  cobra.NoArgs,
			RunE:  jsonCall(client, http.MethodPost, "/clear_memory", nil),
		},
		&cobra.Command{
			Use:   "workspace",
			Short: "Show files in the workspace and the staged command",
			Args:  cobra.NoArgs,
			RunE:  jsonCall(client, http.MethodGet, "/workspace", nil),
		},
		&cobra.Command{
			Use:   "personas",
			Short: "List answering personas",
			Args:  cobra.NoArgs,
			RunE:  jsonCall(client, http.MethodGet, "/personas", nil),
		},
	)
	return root
}

func runAsk(cmd *cobra.Command, c *apiClient, question, persona string) error {
	out := cmd.OutOrStdout()
	headers, err := c.ask(question, persona, out)
	fmt.Fprintln(out)
	if headers.Route != "" {
		color.New(color.Faint).Fprintf(out, "[status=%s route=%s persona=%s]\n", headers.Status, headers.Route, headers.Persona)
	}
	return err
}

func jsonCall(client func() (*apiClient, error), method, path string, body func(args []string) interface{}) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		var payload interface{}
		if body != nil {
			payload = body(args)
		}
		data, err := c.do(method, path, payload)
		if err != nil {
			return err
		}
		printJSON(cmd, data)
		return nil
	}
}

func printJSON(cmd *cobra.Command, data []byte) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
}

func languageFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".java":
		return "java"
	default:
		return "python"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
