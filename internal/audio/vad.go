package audio

// calibrationFactor scales the measured ambient energy into a speech
// threshold: loud rooms get a higher bar, quiet rooms fall back to the floor.
const calibrationFactor = 1.5

// Detector classifies fixed-size PCM16 chunks as speech or silence by RMS
// energy. The threshold is calibrated once per capture-loop start against
// ambient noise; no other state is kept between chunks.
type Detector struct {
	threshold float64
	floor     float64
}

// NewDetector creates a detector with the given minimum threshold. Until
// Calibrate is called the floor is used as the threshold.
func NewDetector(floor float64) *Detector {
	return &Detector{threshold: floor, floor: floor}
}

// Calibrate sets the speech threshold from sampled ambient chunk energies:
// max(1.5 x mean ambient RMS, floor). An empty sample set leaves the
// threshold unchanged.
func (d *Detector) Calibrate(ambientRMS []float64) {
	if len(ambientRMS) == 0 {
		return
	}

	sum := 0.0
	for _, e := range ambientRMS {
		sum += e
	}
	background := sum / float64(len(ambientRMS))

	threshold := background * calibrationFactor
	if threshold < d.floor {
		threshold = d.floor
	}
	d.threshold = threshold
}

// IsSpeech returns whether the chunk's energy exceeds the speech threshold.
func (d *Detector) IsSpeech(chunk []int16) bool {
	return CalculateRMS(chunk) > d.threshold
}

// Threshold returns the current speech threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}
