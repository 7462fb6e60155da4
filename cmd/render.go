package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagekit/internal/markdown"
)

const renderUsage = "Usage:\n\npagekit render some.md pkg > some.html\n"

var renderCmd = &cobra.Command{
	Use:   "render <markdown-file> [package]",
	Short: "Render a markdown file to HTML on stdout",
	Long: `Renders a markdown file to HTML. The optional package argument is a
package descriptor, inline JSON or a path to package.json; with it relative
links point into the package's GitHub repository and a title repeating the
package name is dropped.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(cmd.OutOrStdout(), renderUsage)
		return nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pkg *markdown.Package
	if len(args) > 1 {
		if pkg, err = readPackage(args[1]); err != nil {
			return err
		}
	}

	r := markdown.New(markdown.Options{
		HighlightStyle: cfg.Markdown.HighlightStyle,
		Unsafe:         cfg.Markdown.Unsafe,
	})
	out, err := r.Render(src, pkg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
