package main

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for embytk.

To load completions:

Bash:
  $ source <(embytk completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ embytk completion bash > /etc/bash_completion.d/embytk
  # macOS:
  $ embytk completion bash > $(brew --prefix)/etc/bash_completion.d/embytk

Zsh:
  $ source <(embytk completion zsh)
  # To load completions for each session, execute once:
  $ embytk completion zsh > "${fpath[1]}/_embytk"

Fish:
  $ embytk completion fish | source
  # To load completions for each session, execute once:
  $ embytk completion fish > ~/.config/fish/completions/embytk.fish

PowerShell:
  PS> embytk completion powershell | Out-String | Invoke-Expression
  # To load completions for each session, execute once:
  PS> embytk completion powershell > embytk.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
