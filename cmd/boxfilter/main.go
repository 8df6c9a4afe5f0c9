package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/boxfilter/internal/device"
	"github.com/ironsheep/boxfilter/internal/imaging"
	"github.com/ironsheep/boxfilter/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	device   string
	gray     string
	format   string
	logLevel string
	stats    bool
	json     bool
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var runErr error
	cmd := newRootCmd(&runErr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "boxfilter: %v\n", err)
		if runErr == nil {
			// Usage and flag errors never reach the pipeline.
			return pipeline.ExitUnexpected
		}
		return pipeline.ExitCode(runErr)
	}
	return pipeline.ExitOK
}

func newRootCmd(runErr *error) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "boxfilter [inputPath]",
		Short: "Apply a 5x5 box filter to an image",
		Long: `boxfilter loads an image, converts it to 8-bit grayscale, smooths it with a
5x5 box filter (replicated borders) on a compute device, and writes the result
next to the input as <stem>_boxFilter.<ext>.

The input defaults to ` + pipeline.DefaultInputPath + `.

Exit codes:
  0  success
  1  unexpected error
  2  input file not found
  3  unsupported input format
  4  invalid filter kernel
  5  output could not be encoded or written`,
		Args:          cobra.MaximumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.InputPath = args[0]
			}

			cfg.Logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

			res, err := pipeline.Run(cmd.Context(), cfg)
			if err != nil {
				*runErr = err
				return err
			}
			return report(cmd.OutOrStdout(), res, opts)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("boxfilter {{.Version}}\n  Build time: %s\n  Git commit: %s\n", BuildTime, GitCommit))

	f := cmd.Flags()
	f.StringVar(&opts.device, "device", device.ParallelName,
		"compute device: "+strings.Join(device.Names(), " | "))
	f.StringVar(&opts.gray, "gray", imaging.Rec709.String(),
		"grayscale method: rec709 | bt601 | lightness")
	f.StringVar(&opts.format, "format", strings.TrimPrefix(pipeline.DefaultOutputExt, "."),
		"output format: png | pgm | bmp | tif")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug | info | warn | error")
	f.BoolVar(&opts.stats, "stats", false, "print per-stage timings and pixel statistics")
	f.BoolVar(&opts.json, "json", false, "print the run report as JSON instead of text")

	return cmd
}

// config turns the flags into a pipeline configuration logging to logOut.
func (o options) config(logOut io.Writer) (pipeline.Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid --log-level %q", o.logLevel)
	}
	method, err := imaging.ParseGrayMethod(o.gray)
	if err != nil {
		return pipeline.Config{}, err
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	return pipeline.Config{
		OutputExt:  o.format,
		Device:     o.device,
		GrayMethod: method,
		Logger:     logger,
	}, nil
}

// report prints the outcome of a successful run.
func report(w io.Writer, res *pipeline.Result, opts options) error {
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "Saved filtered image: %s\n", res.OutputPath)
	if !opts.stats {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "input\t%s (%s, %s, %dx%d)\n", res.InputPath, res.InputFormat, res.Encoding, res.Width, res.Height)
	fmt.Fprintf(tw, "device\t%s, kernel %s, gray %s\n", res.Device, res.Kernel, res.GrayMethod)
	for _, st := range []struct {
		name string
		d    fmt.Stringer
	}{
		{"load", res.Timings.Load},
		{"convert", res.Timings.Convert},
		{"upload", res.Timings.Upload},
		{"filter", res.Timings.Filter},
		{"download", res.Timings.Download},
		{"save", res.Timings.Save},
		{"total", res.Timings.Total()},
	} {
		fmt.Fprintf(tw, "%s\t%v\n", st.name, st.d)
	}
	fmt.Fprintf(tw, "before\tmean %.2f  stddev %.2f  range %d-%d\n",
		res.Before.Mean, res.Before.StdDev(), res.Before.Min, res.Before.Max)
	fmt.Fprintf(tw, "after\tmean %.2f  stddev %.2f  range %d-%d\n",
		res.After.Mean, res.After.StdDev(), res.After.Min, res.After.Max)
	fmt.Fprintf(tw, "transfers\t%d bytes up, %d bytes down\n",
		res.Transfers.BytesUploaded, res.Transfers.BytesDownloaded)
	return tw.Flush()
}
