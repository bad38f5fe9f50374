package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newCompletionCommand() *cobra.Command {
	generators := map[string]func(*cobra.Command, io.Writer) error{
		"bash": func(root *cobra.Command, w io.Writer) error {
			return root.GenBashCompletionV2(w, true)
		},
		"zsh": func(root *cobra.Command, w io.Writer) error {
			return root.GenZshCompletion(w)
		},
		"fish": func(root *cobra.Command, w io.Writer) error {
			return root.GenFishCompletion(w, true)
		},
		"powershell": func(root *cobra.Command, w io.Writer) error {
			return root.GenPowerShellCompletionWithDesc(w)
		},
	}

	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for crosspose.

Load it into the current shell, e.g.:

  source <(crosspose completion bash)
  crosspose completion zsh > "${fpath[1]}/_crosspose"
  crosspose completion fish > ~/.config/fish/completions/crosspose.fish
  crosspose completion powershell | Out-String | Invoke-Expression
`,
		// Completion needs no configuration; skip the root PreRun.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return generators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}
