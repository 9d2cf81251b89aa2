package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"scadd/pkg/types"
)

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command {
	return buildRootCmdWith(&Config{Addr: ":8080", LogLvl: "info"})
}

// buildRootCmdWith constructs the Cobra command tree over the HTTP client.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "scadctl",
		Short:         "Client for the scadd render daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("addr", cfg.Addr, "Daemon address (defaults SCADD_ADDR or :8080)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults SCADCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	designsCmd := &cobra.Command{Use: "designs", Short: "List designs known to the daemon", RunE: func(cmd *cobra.Command, args []string) error {
		var resp types.DesignsResponse
		if err := getJSON(cfg, "/designs", &resp); err != nil {
			return err
		}
		if len(resp.Designs) == 0 {
			fmt.Println("no designs found")
			return nil
		}
		for _, d := range resp.Designs {
			fmt.Printf("%s\t%s\n", d.ID, d.Path)
		}
		return nil
	}}
	root.AddCommand(designsCmd)

	statusCmd := &cobra.Command{Use: "status", Short: "Show daemon status", RunE: func(cmd *cobra.Command, args []string) error {
		var st types.StatusResponse
		if err := getJSON(cfg, "/status", &st); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}}
	root.AddCommand(statusCmd)

	var (
		renderParams  []string
		renderSource  string
		renderQuality string
		renderTimeout int
		renderOut     string
	)
	renderCmd := &cobra.Command{
		Use:     "render [design-id]",
		Short:   "Render a design to a mesh file",
		Example: "  scadctl render gridfinity-box.scad -p width=50 -p sides=6 -o box.stl\n  scadctl render --source-file local.scad --quality preview -o preview.stl",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(renderParams)
			if err != nil {
				return err
			}
			src, err := readSourceFile(renderSource)
			if err != nil {
				return err
			}
			req := types.RenderRequest{Source: src, Parameters: params, Quality: renderQuality, TimeoutMs: renderTimeout}
			if len(args) == 1 {
				req.Design = args[0]
			}
			if req.Design == "" && req.Source == "" {
				return fmt.Errorf("either a design id or --source-file is required")
			}
			debug("rendering design=%q quality=%q params=%d", req.Design, req.Quality, len(params))
			resp, err := postJSON(cfg, "/render", req)
			if err != nil {
				return err
			}
			return fetchMesh(resp, renderOut)
		},
	}
	renderCmd.Flags().StringArrayVarP(&renderParams, "param", "p", nil, "Parameter override key=value (repeatable)")
	renderCmd.Flags().StringVar(&renderSource, "source-file", "", "Render inline source from a local file")
	renderCmd.Flags().StringVar(&renderQuality, "quality", "", "Quality tier: preview|full (default full)")
	renderCmd.Flags().IntVar(&renderTimeout, "timeout-ms", 0, "Per-request timeout override in milliseconds")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "-", "Output file (- for stdout)")
	root.AddCommand(renderCmd)

	var paramsList []string
	paramsCmd := &cobra.Command{
		Use:     "params <design-id>",
		Short:   "Send a parameter change into the auto-preview debounce",
		Example: "  scadctl params gridfinity-box.scad -p width=42",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(paramsList)
			if err != nil {
				return err
			}
			resp, err := postJSON(cfg, "/params", types.ParamsUpdate{Design: args[0], Parameters: params})
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				return decodeError(resp)
			}
			info("parameter update accepted")
			return nil
		},
	}
	paramsCmd.Flags().StringArrayVarP(&paramsList, "param", "p", nil, "Parameter override key=value (repeatable)")
	root.AddCommand(paramsCmd)

	var previewOut string
	previewCmd := &cobra.Command{Use: "preview", Short: "Download the latest preview mesh", RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(cfg.baseURL() + "/preview")
		if err != nil {
			return err
		}
		return fetchMesh(resp, previewOut)
	}}
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "-", "Output file (- for stdout)")
	root.AddCommand(previewCmd)

	cancelCmd := &cobra.Command{Use: "cancel", Short: "Cancel the in-flight render", RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := postJSON(cfg, "/cancel", struct{}{})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return decodeError(resp)
		}
		info("cancel requested")
		return nil
	}}
	root.AddCommand(cancelCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// MainWithArgs runs the CLI and returns a process exit code.
func MainWithArgs(args []string) int {
	cfg := &Config{
		Addr:   envStr("SCADD_ADDR", ":8080"),
		LogLvl: envStr("SCADCTL_LOG_LEVEL", "info"),
	}
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main is the conventional entry used by cmd/scadctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
