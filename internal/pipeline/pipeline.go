// Package pipeline runs the box filter end to end:
//
//	load -> convert -> upload -> filter -> download -> save
//
// Every stage either hands an owned buffer to the next one or stops the run
// with an *Error naming the stage. The codec context, the device and its
// buffers are released on every exit path.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ironsheep/boxfilter/internal/device"
	"github.com/ironsheep/boxfilter/internal/filter"
	"github.com/ironsheep/boxfilter/internal/imaging"
	"github.com/ironsheep/boxfilter/internal/pixel"
)

// Config selects the files, device and filter for one run. Zero fields take
// the defaults listed on each field.
type Config struct {
	InputPath  string             // DefaultInputPath
	OutputPath string             // OutputPath(InputPath, OutputExt)
	OutputExt  string             // DefaultOutputExt; ignored when OutputPath is set
	Device     string             // device.ParallelName
	Kernel     filter.Kernel      // filter.DefaultKernel()
	GrayMethod imaging.GrayMethod // imaging.Rec709
	Logger     *slog.Logger       // discards everything
}

func (c Config) withDefaults() Config {
	if c.InputPath == "" {
		c.InputPath = DefaultInputPath
	}
	if c.OutputPath == "" {
		c.OutputPath = OutputPath(c.InputPath, c.OutputExt)
	}
	if c.Device == "" {
		c.Device = device.ParallelName
	}
	if c.Kernel == (filter.Kernel{}) {
		c.Kernel = filter.DefaultKernel()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Timings holds the wall time of each stage.
type Timings struct {
	Load     time.Duration `json:"load_ns"`
	Convert  time.Duration `json:"convert_ns"`
	Upload   time.Duration `json:"upload_ns"`
	Filter   time.Duration `json:"filter_ns"`
	Download time.Duration `json:"download_ns"`
	Save     time.Duration `json:"save_ns"`
}

// Total is the sum of all stages.
func (t Timings) Total() time.Duration {
	return t.Load + t.Convert + t.Upload + t.Filter + t.Download + t.Save
}

// Result describes a completed run.
type Result struct {
	InputPath    string        `json:"input_path"`
	OutputPath   string        `json:"output_path"`
	InputFormat  string        `json:"input_format"`
	OutputFormat string        `json:"output_format"`
	Encoding     string        `json:"encoding"`
	GrayMethod   string        `json:"gray_method"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Device       string        `json:"device"`
	Kernel       string        `json:"kernel"`
	Timings      Timings       `json:"timings"`
	Before       imaging.Stats `json:"before"`
	After        imaging.Stats `json:"after"`
	Transfers    device.Stats  `json:"transfers"`
}

// Run executes the pipeline once.
//
// The kernel and device are checked before any file is opened. A failure
// returns a nil Result and an *Error.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	if err := cfg.Kernel.Validate(); err != nil {
		return nil, newError(StageValidate, "", err)
	}
	dev, err := device.Open(cfg.Device)
	if err != nil {
		return nil, newError(StageValidate, "", err)
	}
	defer dev.Close()
	device.SetLogger(dev, log)

	codecs := imaging.OpenCodecs()
	defer codecs.Close()

	res := &Result{
		InputPath:  cfg.InputPath,
		OutputPath: cfg.OutputPath,
		GrayMethod: cfg.GrayMethod.String(),
		Device:     dev.Name(),
		Kernel:     cfg.Kernel.String(),
	}

	start := time.Now()
	dec, err := codecs.Load(cfg.InputPath)
	if err != nil {
		return nil, newError(StageLoad, cfg.InputPath, err)
	}
	res.Timings.Load = time.Since(start)
	res.InputFormat = dec.Format
	res.Encoding = dec.Encoding
	res.Width, res.Height = dec.Info.Width, dec.Info.Height
	log.Info("loaded image", "path", cfg.InputPath, "format", dec.Format,
		"encoding", dec.Encoding, "width", res.Width, "height", res.Height)

	start = time.Now()
	gray, err := imaging.ToGray(dec.Image, cfg.GrayMethod)
	if err != nil {
		return nil, newError(StageConvert, cfg.InputPath, err)
	}
	host, err := pixel.FromGray(gray)
	if err != nil {
		return nil, newError(StageConvert, cfg.InputPath, err)
	}
	res.Timings.Convert = time.Since(start)
	res.Before = imaging.GrayStats(gray)
	log.Debug("converted to gray", "method", cfg.GrayMethod, "copied", gray != dec.Image)

	start = time.Now()
	src, err := dev.Upload(host)
	if err != nil {
		return nil, newError(StageUpload, cfg.InputPath, err)
	}
	defer release(log, dev, src, "source")
	res.Timings.Upload = time.Since(start)

	start = time.Now()
	dst, err := dev.Alloc(src.Width, src.Height)
	if err != nil {
		return nil, newError(StageFilter, cfg.InputPath, err)
	}
	defer release(log, dev, dst, "destination")
	if err := dev.BoxFilter(ctx, dst, src, cfg.Kernel); err != nil {
		return nil, newError(StageFilter, cfg.InputPath, err)
	}
	res.Timings.Filter = time.Since(start)
	log.Debug("filtered", "device", dev.Name(), "kernel", cfg.Kernel, "elapsed", res.Timings.Filter)

	start = time.Now()
	out, err := dev.Download(dst)
	if err != nil {
		return nil, newError(StageDownload, cfg.InputPath, err)
	}
	outImg, err := out.Gray()
	if err != nil {
		return nil, newError(StageDownload, cfg.InputPath, err)
	}
	res.Timings.Download = time.Since(start)
	res.After = imaging.GrayStats(outImg)

	start = time.Now()
	format, err := codecs.Save(outImg, cfg.OutputPath)
	if err != nil {
		return nil, newError(StageSave, cfg.OutputPath, err)
	}
	res.Timings.Save = time.Since(start)
	res.OutputFormat = format
	res.Transfers = dev.Stats()
	log.Info("saved image", "path", cfg.OutputPath, "format", format, "total", res.Timings.Total())

	return res, nil
}

// release frees a device buffer. The run has already produced its result by
// the time this runs, so a failure is only logged.
func release(log *slog.Logger, dev device.Device, buf *pixel.Buffer, role string) {
	if err := dev.Free(buf); err != nil {
		log.Debug("free failed", "buffer", role, "err", err)
	}
}
