package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cribo-bundler/cribo/internal/bundle"
	"github.com/cribo-bundler/cribo/internal/config"
	"github.com/cribo-bundler/cribo/internal/output"
	"github.com/cribo-bundler/cribo/pkg/types"
)

var (
	sourceRoots     []string
	outPath         string
	requirementsOut string
	noTreeShake     bool
	pythonVersion   string
	strict          bool
	configPath      string
	diagnosticsJSON string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle <entry.py>",
	Short: "Bundle a Python entry point and its first-party imports into one file",
	Args:  cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("cannot resolve entry path: %s", err)
		}
		if _, err := os.Stat(entry); err != nil {
			return fmt.Errorf("entry file not found: %s", entry)
		}

		dir := filepath.Dir(entry)

		projectCfg, err := config.LoadProjectConfig(dir, configPath)
		if err != nil {
			return fmt.Errorf("load project config: %w", err)
		}

		cfg := types.BundleConfig{
			EntryPath:     entry,
			PythonVersion: "3.12",
			TreeShake:     true,
			Verbose:       verbose,
		}

		var reqPath string
		if projectCfg != nil {
			if len(projectCfg.SourceRoots) > 0 {
				cfg.SourceRoots = projectCfg.SourceRoots
			}
			if projectCfg.Out != "" {
				cfg.OutPath = projectCfg.Out
			}
			if projectCfg.Requirements != "" {
				cfg.EmitReqs = true
				reqPath = projectCfg.Requirements
			}
			if projectCfg.TreeShake != nil {
				cfg.TreeShake = *projectCfg.TreeShake
			}
			if projectCfg.PythonVersion != "" {
				cfg.PythonVersion = projectCfg.PythonVersion
			}
			cfg.Strict = projectCfg.Strict
		} else if toolCfg, tErr := config.LoadPyProjectTool(dir); tErr == nil && toolCfg != nil {
			if len(toolCfg.Tool.Cribo.SourceRoots) > 0 {
				cfg.SourceRoots = toolCfg.Tool.Cribo.SourceRoots
			}
			if toolCfg.Tool.Cribo.Out != "" {
				cfg.OutPath = toolCfg.Tool.Cribo.Out
			}
			if toolCfg.Tool.Cribo.PythonVersion != "" {
				cfg.PythonVersion = toolCfg.Tool.Cribo.PythonVersion
			}
		}

		if len(sourceRoots) > 0 {
			cfg.SourceRoots = sourceRoots
		}
		if len(cfg.SourceRoots) == 0 {
			cfg.SourceRoots = []string{dir}
		}
		if outPath != "" {
			cfg.OutPath = outPath
		}
		if requirementsOut != "" {
			cfg.EmitReqs = true
			reqPath = requirementsOut
		}
		if cmd.Flags().Changed("no-tree-shake") {
			cfg.TreeShake = !noTreeShake
		}
		if cmd.Flags().Changed("python-version") {
			cfg.PythonVersion = pythonVersion
		}
		if cmd.Flags().Changed("strict") {
			cfg.Strict = strict
		}
		cfg.DiagnosticsJSON = diagnosticsJSON

		spinner := bundle.NewSpinner(os.Stderr)
		onProgress := func(stage, detail string) {
			spinner.Update(stage + ": " + detail)
		}
		spinner.Start("Bundling...")

		p := bundle.New(cfg, onProgress)
		result, err := p.Run()
		spinner.Stop("")
		if err != nil {
			return fmt.Errorf("bundle: %w", err)
		}

		output.WriteDiagnostics(os.Stderr, result.Diagnostics)
		output.Summary(os.Stderr, result.Diagnostics)

		if cfg.DiagnosticsJSON != "" {
			f, err := os.Create(cfg.DiagnosticsJSON)
			if err != nil {
				return fmt.Errorf("create diagnostics JSON file: %w", err)
			}
			defer f.Close()
			if err := result.Diagnostics.WriteJSON(f); err != nil {
				return fmt.Errorf("write diagnostics JSON: %w", err)
			}
		}

		if result.Diagnostics.HasFatal() {
			return types.NewExitError(1, "bundling failed, see diagnostics above")
		}

		if cfg.OutPath != "" {
			if err := os.WriteFile(cfg.OutPath, []byte(result.Bundle), 0o644); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), result.Bundle)
		}

		if cfg.EmitReqs && reqPath != "" {
			if err := os.WriteFile(reqPath, []byte(result.Requirements), 0o644); err != nil {
				return fmt.Errorf("write requirements: %w", err)
			}
		}

		return nil
	},
}

func init() {
	bundleCmd.Flags().StringSliceVar(&sourceRoots, "root", nil, "source root directory (repeatable; defaults to the entry file's directory)")
	bundleCmd.Flags().StringVar(&outPath, "out", "", "write the bundle to this file instead of stdout")
	bundleCmd.Flags().StringVar(&requirementsOut, "requirements", "", "write a requirements.txt of third-party imports to this path")
	bundleCmd.Flags().BoolVar(&noTreeShake, "no-tree-shake", false, "disable tree-shaking of unused definitions")
	bundleCmd.Flags().StringVar(&pythonVersion, "python-version", "3.12", "target Python version for stdlib classification")
	bundleCmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as fatal")
	bundleCmd.Flags().StringVar(&configPath, "config", "", "path to a .cribo.yml project config file")
	bundleCmd.Flags().StringVar(&diagnosticsJSON, "diagnostics-json", "", "write diagnostics as JSON to this path")
	rootCmd.AddCommand(bundleCmd)
}
