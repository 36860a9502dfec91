package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurSize is the Gaussian kernel applied before differencing.
	blurSize = 21
	// diffThreshold is the per-pixel intensity change that counts.
	diffThreshold = 25
)

// MotionDetector compares consecutive frames and reports the share of
// pixels that changed.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector returns a detector that reports motion once more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame only sets
// the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurSize, Y: blurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&m.prevGray)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prevGray.Close()
	m.prevGray = gocv.NewMat()
	m.initialized = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.Reset()
}

// MotionGate decides whether a frame should be classified. It opens on
// motion and stays open for the hold period after the last motion or the
// last Keep call, so a hand held still keeps being classified.
type MotionGate struct {
	detector *MotionDetector
	hold     time.Duration
	last     time.Time
	open     bool
}

// NewMotionGate returns a gate. A non-positive threshold disables motion
// detection and the gate is always open.
func NewMotionGate(threshold float64, hold time.Duration) *MotionGate {
	g := &MotionGate{hold: hold}
	if threshold > 0 {
		g.detector = NewMotionDetector(threshold)
	}
	return g
}

// Observe feeds one frame and reports whether it should be classified and
// whether the gate just opened or closed.
func (g *MotionGate) Observe(frame *gocv.Mat, now time.Time) (open, changed bool) {
	if g.detector == nil {
		changed = !g.open
		g.open = true
		return true, changed
	}

	if moving, _ := g.detector.Detect(frame); moving {
		g.last = now
	}

	next := !g.last.IsZero() && now.Sub(g.last) <= g.hold
	changed = next != g.open
	g.open = next
	return next, changed
}

// Keep holds the gate open from now, e.g. while a hand is still visible.
func (g *MotionGate) Keep(now time.Time) {
	if g.open {
		g.last = now
	}
}

// Open reports the current gate state.
func (g *MotionGate) Open() bool {
	return g.open
}

// Close releases the detector.
func (g *MotionGate) Close() {
	if g.detector != nil {
		g.detector.Close()
	}
	g.open = false
	g.last = time.Time{}
}
