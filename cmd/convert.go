package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"images_to_pdf/internal/collection"
	"images_to_pdf/internal/config"
	"images_to_pdf/internal/converter"
	"images_to_pdf/internal/ingest"
	"images_to_pdf/internal/workspace"
)

type convertOptions struct {
	output       string
	pageSize     string
	orientation  string
	quality      int
	autoOptimize bool
	rotations    map[string]int
	cpuprofile   string
	memprofile   string
	noProgress   bool
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [paths...]",
		Short: "Convert image files or directories into one PDF",
		Long: `Reads every image from the given files and directories (directories are
scanned one level deep), sorts them by name, and writes one PDF page per image.
Non-image files are reported and skipped. Nothing is written if any image fails.`,
		Example: `  # Convert every image in a directory
  images-to-pdf convert ./scans -o scans.pdf

  # Letter landscape at 60% quality, rotating one page
  images-to-pdf convert a.jpg b.png --page-size letter --orientation landscape \
    --auto-optimize=false --quality 60 --rotate b.png=90`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			if opts.cpuprofile != "" {
				f, err := os.Create(opts.cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("could not start CPU profile: %w", err)
				}
				defer pprof.StopCPUProfile()
				slog.Info("CPU profiling enabled", "output", opts.cpuprofile)
			}

			if err := runConvert(cmd, cfg, opts, args); err != nil {
				return err
			}

			if opts.memprofile != "" {
				f, err := os.Create(opts.memprofile)
				if err != nil {
					return fmt.Errorf("could not create memory profile: %w", err)
				}
				defer f.Close()
				runtime.GC() // Get up-to-date statistics
				if err := pprof.WriteHeapProfile(f); err != nil {
					return fmt.Errorf("could not write memory profile: %w", err)
				}
				slog.Info("Memory profile written", "output", opts.memprofile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output PDF file name (default from config, converted-images.pdf)")
	cmd.Flags().StringVar(&opts.pageSize, "page-size", "", "Page size: a4 or letter")
	cmd.Flags().StringVar(&opts.orientation, "orientation", "", "Page orientation: portrait or landscape")
	cmd.Flags().IntVar(&opts.quality, "quality", 90, "Image quality in percent, used when --auto-optimize=false")
	cmd.Flags().BoolVar(&opts.autoOptimize, "auto-optimize", true, "Compress every image at 80% quality")
	cmd.Flags().StringToIntVar(&opts.rotations, "rotate", nil, "Clockwise rotation per file name, e.g. --rotate scan.png=90 (repeatable)")
	cmd.Flags().StringVar(&opts.cpuprofile, "cpuprofile", "", "Write cpu profile to `file`")
	cmd.Flags().StringVar(&opts.memprofile, "memprofile", "", "Write memory profile to `file`")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Do not draw a progress bar")

	return cmd
}

// apply lets explicitly set flags override the loaded config.
func (o *convertOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if o.pageSize != "" {
		cfg.Options.PageSize = converter.PageSize(o.pageSize)
	}
	if o.orientation != "" {
		cfg.Options.Orientation = converter.Orientation(o.orientation)
	}
	if flags.Changed("quality") {
		cfg.Options.QualityPercent = o.quality
	}
	if flags.Changed("auto-optimize") {
		cfg.Options.AutoOptimize = o.autoOptimize
	}
	if o.output != "" {
		cfg.OutputFilename = o.output
	}
	for name, deg := range o.rotations {
		if !collection.ValidRotation(deg) {
			return fmt.Errorf("invalid rotation %d for %s (want 0, 90, 180 or 270)", deg, name)
		}
	}
	return cfg.Validate()
}

func runConvert(cmd *cobra.Command, cfg *config.Config, opts *convertOptions, paths []string) error {
	files, err := ingest.ScanPaths(paths)
	if err != nil {
		return err
	}

	t := cfg.NewTransformer()
	ws := workspace.New(cfg.NewIngester(), t, cfg.NewAssembler(t), cfg.Options)

	res, err := ws.Ingest(cmd.Context(), files)
	if err != nil {
		return err
	}
	for _, rej := range res.Rejected {
		fmt.Fprintln(cmd.ErrOrStderr(), rej.Message())
	}
	if err := applyRotations(cmd, ws, opts.rotations); err != nil {
		return err
	}

	if !opts.noProgress {
		bar := newProgressBar(cmd)
		ws.Subscribe(func(s workspace.Snapshot) {
			if s.State == workspace.Converting {
				_ = bar.Set(s.Progress)
			}
		})
		defer bar.Finish()
	}

	var buf bytes.Buffer
	if err := ws.Convert(cmd.Context(), &buf); err != nil {
		return fmt.Errorf("PDF conversion failed: %w", err)
	}
	if err := os.WriteFile(cfg.OutputFilename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("could not write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully created '%s' from %d images\n", cfg.OutputFilename, len(res.Records))
	return nil
}

// applyRotations rotates every record whose name has a requested rotation.
func applyRotations(cmd *cobra.Command, ws *workspace.Workspace, rotations map[string]int) error {
	if len(rotations) == 0 {
		return nil
	}
	matched := make(map[string]bool, len(rotations))
	for _, rec := range ws.Snapshot().Records {
		deg, ok := rotations[rec.Name]
		if !ok {
			continue
		}
		matched[rec.Name] = true
		for rec.Rotation != deg {
			r, err := ws.Rotate(rec.ID)
			if err != nil {
				return err
			}
			rec.Rotation = r
		}
	}
	for name := range rotations {
		if !matched[name] {
			slog.Warn("No image matches rotation", "filename", name)
		}
	}
	return nil
}

func newProgressBar(cmd *cobra.Command) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Converting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(cmd.ErrOrStderr(), "\n")
		}),
	)
}
