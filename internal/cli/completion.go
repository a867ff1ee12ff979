package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionInstall bool

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Set up shell completions for looper",
	Long: `Set up shell tab-completions for looper commands, flags, session IDs and
loop IDs.

Supported shells: bash, zsh, fish, powershell

Quick install (adds completions to your shell profile):

  looper completion bash --install
  looper completion zsh --install
  looper completion fish --install

Or print the completion script to stdout (for manual setup):

  looper completion bash
  looper completion powershell`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MaximumNArgs(1),
	RunE:      runCompletion,
}

// shellCompletion describes how to generate and install one shell's script.
type shellCompletion struct {
	generate func(w io.Writer) error
	load     string
	// target returns the install path under home; nil means install is unsupported.
	target func(home string) string
	after  []string
}

var shells = map[string]shellCompletion{
	"bash": {
		generate: func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
		load:     `eval "$(looper completion bash)"`,
		target:   bashCompletionTarget,
		after:    []string{"Restart your shell or source the file above."},
	},
	"zsh": {
		generate: rootCmd.GenZshCompletion,
		load:     `eval "$(looper completion zsh)"`,
		target: func(home string) string {
			return filepath.Join(home, ".local", "share", "zsh", "site-functions", "_looper")
		},
		after: []string{
			"Ensure this directory is in your fpath. Add to ~/.zshrc if needed:",
			"  fpath=(~/.local/share/zsh/site-functions $fpath)",
			"  autoload -Uz compinit && compinit",
		},
	},
	"fish": {
		generate: func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
		load:     "looper completion fish | source",
		target: func(home string) string {
			return filepath.Join(home, ".config", "fish", "completions", "looper.fish")
		},
		after: []string{"Completions will be available in new fish sessions automatically."},
	},
	"powershell": {
		generate: rootCmd.GenPowerShellCompletionWithDesc,
		load:     "looper completion powershell | Out-String | Invoke-Expression",
	},
}

func init() {
	completionCmd.Flags().BoolVar(&completionInstall, "install", false,
		"Install completions into your shell profile")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

func runCompletion(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	shell, ok := shells[args[0]]
	if !ok {
		return fmt.Errorf("unsupported shell %q (supported: bash, zsh, fish, powershell)", args[0])
	}

	if completionInstall {
		return installCompletion(cmd.OutOrStdout(), args[0], shell)
	}

	// Hints go to stderr so eval "$(looper completion bash)" only sees the script.
	hints := []string{"# To load completions in your current session:", "#   " + shell.load, "#"}
	if shell.target != nil {
		hints = append(hints, "# To install permanently:", "#   looper completion "+args[0]+" --install", "#")
	}
	w := cmd.ErrOrStderr()
	for _, line := range hints {
		_, _ = fmt.Fprintln(w, line)
	}
	return shell.generate(cmd.OutOrStdout())
}

func installCompletion(out io.Writer, name string, shell shellCompletion) error {
	if shell.target == nil {
		return fmt.Errorf("automatic install is not supported for %s; run 'looper completion %s' and add the output to your profile", name, name)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("detecting home directory: %w", err)
	}
	target := shell.target(home)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating completion directory: %w", err)
	}
	if err := writeCompletionFile(target, shell.generate); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s completions installed to %s\n", name, target)
	for _, line := range shell.after {
		fmt.Fprintln(out, line)
	}
	return nil
}

// writeCompletionFile writes the script to target and reports close errors.
func writeCompletionFile(target string, generate func(io.Writer) error) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating completion file %s: %w", target, err)
	}

	writeErr := generate(f)
	closeErr := f.Close()

	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return fmt.Errorf("closing completion file %s: %w", target, closeErr)
	}
	return nil
}

// bashCompletionTarget uses the user-local path read by bash-completion >= 2.0.
func bashCompletionTarget(home string) string {
	return filepath.Join(home, ".local", "share", "bash-completion", "completions", "looper")
}
