package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagekit/internal/logger"
	"github.com/ziadkadry99/pagekit/internal/markdown"
	"github.com/ziadkadry99/pagekit/internal/progress"
)

var buildCmd = &cobra.Command{
	Use:   "build [src] [out]",
	Short: "Render a tree of markdown files into standalone HTML pages",
	Long: `Renders every markdown file under src matching the configured include
globs into out, each page with a navigation sidebar. src defaults to the
current directory and out to {data_dir}/site.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("package", "", "package descriptor (inline JSON or path to package.json)")
	buildCmd.Flags().String("name", "", "site name appended to page titles (defaults to the src directory name)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	src := "."
	if len(args) > 0 {
		src = args[0]
	}
	out := filepath.Join(cfg.DataDir, "site")
	if len(args) > 1 {
		out = args[1]
	}

	pkgArg, _ := cmd.Flags().GetString("package")
	if pkgArg == "" {
		if _, err := os.Stat(filepath.Join(src, "package.json")); err == nil {
			pkgArg = filepath.Join(src, "package.json")
		}
	}
	pkg, err := readPackage(pkgArg)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		if abs, err := filepath.Abs(src); err == nil {
			name = filepath.Base(abs)
		}
	}

	r := markdown.New(markdown.Options{
		HighlightStyle: cfg.Markdown.HighlightStyle,
		Unsafe:         cfg.Markdown.Unsafe,
	})
	n, err := r.Build(cmd.Context(), src, out, markdown.BuildOptions{
		Include:  cfg.Markdown.Include,
		Exclude:  cfg.Markdown.Exclude,
		SiteName: name,
		Package:  pkg,
		Reporter: progress.NewReporter(cmd.ErrOrStderr()),
		Logger:   logger.Component(log, "build"),
	})
	if err != nil {
		return fmt.Errorf("building site: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Static site generated: %s (%d pages)\n", out, n)
	return nil
}
