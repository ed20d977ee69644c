package cli

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/masonry/pkg/render"
)

var completionShells = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       (*cobra.Command).GenBashCompletion,
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

func (c *CLI) completionCommand() *cobra.Command {
	shells := slices.Sorted(maps.Keys(completionShells))
	return &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell.

  source <(masonry completion bash)
  masonry completion zsh > "${fpath[1]}/_masonry"
  masonry completion fish > ~/.config/fish/completions/masonry.fish
  masonry completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// registerFlagCompletions adds value completion for the enumerated flags of
// cmd, where present.
func registerFlagCompletions(cmd *cobra.Command) {
	fixed := map[string][]string{
		"from":   {fromAPI, fromMongo},
		"format": render.Formats,
	}
	for name, values := range fixed {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, completeList(values))
	}
}

// completeList completes comma-separated values, offering each value once.
func completeList(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		done := strings.Split(toComplete, ",")
		prefix := strings.Join(done[:len(done)-1], ",")
		if prefix != "" {
			prefix += ","
		}
		used := make(map[string]bool, len(done))
		for _, d := range done[:len(done)-1] {
			used[d] = true
		}
		var out []string
		for _, v := range values {
			if !used[v] {
				out = append(out, prefix+v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
