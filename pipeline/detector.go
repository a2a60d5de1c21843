// Package pipeline drives the full detection pipeline per camera frame and
// owns the admission policy that throttles a continuous frame stream
// against the comparatively slow inference call.
package pipeline

import (
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/nutrivision/food-detection-service/detections"
	"github.com/nutrivision/food-detection-service/metrics"
	"github.com/nutrivision/food-detection-service/models"
	"github.com/nutrivision/food-detection-service/yuv"
)

// inferenceWarnAfter is informational only: runs slower than this are
// logged, never preempted.
const inferenceWarnAfter = 2 * time.Second

// Config is the externally supplied pipeline policy.
type Config struct {
	InputSize           int
	NumClasses          int
	NumPredictions      int
	ConfidenceThreshold float32
	IoUThreshold        float32
	// FrameSkipInterval admits every Kth delivered frame; 1 admits all.
	FrameSkipInterval int
	// MinInterval is the minimum wall-clock spacing between admitted
	// frames; 0 disables the check.
	MinInterval time.Duration
}

// Detector runs the pipeline: color conversion, letterboxing, inference and
// postprocessing, behind a drop-current admission gate. At most one run is
// in flight per Detector; a frame arriving while busy is dropped, never
// queued, which keeps memory and latency bounded at any input rate.
type Detector struct {
	cfg    Config
	runner detections.Runner
	pre    *detections.Preprocessor
	labels []string
	clock  clock.Clock
	log    *zap.Logger
	met    *metrics.Collector

	mu           sync.Mutex
	busy         bool
	frameCounter uint64
	lastAccepted time.Time
}

// Option configures a Detector beyond its required collaborators.
type Option func(*Detector)

// WithClock substitutes the wall clock, letting tests drive the
// min-interval rule deterministically.
func WithClock(c clock.Clock) Option {
	return func(d *Detector) { d.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) { d.log = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(d *Detector) { d.met = m }
}

// New builds a Detector around an already loaded, shape-validated runner
// and a read-only label table.
func New(cfg Config, runner detections.Runner, labelTable []string, opts ...Option) *Detector {
	if cfg.FrameSkipInterval < 1 {
		cfg.FrameSkipInterval = 1
	}
	d := &Detector{
		cfg:    cfg,
		runner: runner,
		pre:    detections.NewPreprocessor(cfg.InputSize),
		labels: labelTable,
		clock:  clock.New(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessFrame runs one camera frame through the pipeline. The second
// return value reports admission: false means the frame was dropped by the
// busy rule, the skip interval or the min-interval throttle, and no work
// was done. An admitted frame always yields a FrameResult; per-frame
// failures degrade to an empty detection list and are visible only in logs
// and metrics.
func (d *Detector) ProcessFrame(frame yuv.Frame) (result *models.FrameResult, admitted bool) {
	if !d.admit() {
		return nil, false
	}
	defer d.release()

	w, h := frame.ProcessedSize()
	result = d.emptyResult(w, h)
	admitted = true

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("pipeline run panicked", zap.Any("panic", r))
			d.countError()
		}
	}()

	convertStart := d.clock.Now()
	img, err := frame.ToRGB()
	if err != nil {
		d.log.Warn("dropping frame content", zap.Error(err))
		d.countError()
		return result, true
	}
	d.log.Debug("frame converted", zap.Duration("convert", d.clock.Since(convertStart)))
	d.runInto(img, result)
	return result, true
}

// ProcessImage runs an already decoded RGB image through letterboxing,
// inference and postprocessing under the same admission gate as
// ProcessFrame. It serves sources that bypass the camera's planar format,
// such as gallery uploads.
func (d *Detector) ProcessImage(img image.Image) (result *models.FrameResult, admitted bool) {
	if !d.admit() {
		return nil, false
	}
	defer d.release()

	result = d.emptyResult(img.Bounds().Dx(), img.Bounds().Dy())
	admitted = true

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("pipeline run panicked", zap.Any("panic", r))
			d.countError()
		}
	}()

	d.runInto(img, result)
	return result, true
}

// admit applies the three admission rules in order: busy, frame counter,
// minimum interval. It flips the busy flag only when the frame is accepted.
func (d *Detector) admit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.met != nil {
		d.met.FramesReceived.Inc()
	}
	if d.busy {
		d.skip("pipeline busy")
		return false
	}

	d.frameCounter++
	if d.frameCounter%uint64(d.cfg.FrameSkipInterval) != 0 {
		d.skip("skip interval")
		return false
	}

	now := d.clock.Now()
	if d.cfg.MinInterval > 0 && !d.lastAccepted.IsZero() && now.Sub(d.lastAccepted) < d.cfg.MinInterval {
		d.skip("min interval")
		return false
	}

	d.busy = true
	d.lastAccepted = now
	return true
}

func (d *Detector) skip(reason string) {
	if d.met != nil {
		d.met.FramesSkipped.Inc()
	}
	d.log.Debug("frame skipped", zap.String("reason", reason))
}

// release clears the busy flag. It runs on every outcome of an admitted
// frame, including panics, so one bad frame can never wedge the detector.
func (d *Detector) release() {
	d.mu.Lock()
	d.busy = false
	d.mu.Unlock()
}

// runInto executes letterbox, inference and postprocessing, filling result
// in place. On a handled error the result keeps its empty detection list.
func (d *Detector) runInto(img image.Image, result *models.FrameResult) {
	runStart := d.clock.Now()

	tensor, tf := d.pre.Process(img)
	preprocessTime := d.clock.Since(runStart)

	start := d.clock.Now()
	output, err := d.runner.Run(tensor)
	elapsed := d.clock.Since(start)
	result.InferenceTimeMs = int(elapsed.Milliseconds())

	if err != nil {
		d.log.Warn("inference failed", zap.Error(err))
		d.countError()
		return
	}
	if d.met != nil {
		d.met.InferenceTime.Observe(float64(elapsed.Milliseconds()))
	}
	if elapsed > inferenceWarnAfter {
		d.log.Warn("slow inference", zap.Duration("elapsed", elapsed))
	}

	postStart := d.clock.Now()
	dets, err := detections.Postprocess(output, detections.PostprocessParams{
		Transform:           tf,
		OrigWidth:           img.Bounds().Dx(),
		OrigHeight:          img.Bounds().Dy(),
		ConfidenceThreshold: d.cfg.ConfidenceThreshold,
		IoUThreshold:        d.cfg.IoUThreshold,
		NumClasses:          d.cfg.NumClasses,
		NumPredictions:      d.cfg.NumPredictions,
		Labels:              d.labels,
	})
	if err != nil {
		d.log.Warn("postprocess failed", zap.Error(err))
		d.countError()
		return
	}

	result.Detections = dets
	if d.met != nil {
		d.met.FramesProcessed.Inc()
	}
	d.log.Debug("frame processed",
		zap.Int("detections", len(dets)),
		zap.Duration("preprocess", preprocessTime),
		zap.Duration("inference", elapsed),
		zap.Duration("postprocess", d.clock.Since(postStart)),
		zap.Duration("total", d.clock.Since(runStart)))
}

func (d *Detector) emptyResult(w, h int) *models.FrameResult {
	return &models.FrameResult{
		Detections:      []models.Detection{},
		ProcessedWidth:  w,
		ProcessedHeight: h,
	}
}

func (d *Detector) countError() {
	if d.met != nil {
		d.met.FrameErrors.Inc()
	}
}
