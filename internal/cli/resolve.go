package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "resolve [text]",
		Short: "Print text with placeholders substituted",
		Long:  "Resolve substitutes placeholders the way the relay does for a prompt. Without arguments the text is read from stdin.",
		RunE:  runResolve,
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = string(b)
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	fmt.Fprint(cmd.OutOrStdout(), a.Resolve(cmd.Context(), text))
	return nil
}
