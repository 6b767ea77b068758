package opt

import "math"

// RateSetter is an optimizer whose learning rate can change between epochs.
type RateSetter interface {
	LR() float64
	SetLR(lr float64)
}

// Scheduler adjusts the learning rate once per epoch.
type Scheduler interface {
	// Step is called after validation with the epoch's validation loss.
	Step(validLoss float64)
	LR() float64
}

// StepLR multiplies the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizer RateSetter
	stepSize  int
	gamma     float64
	lastEpoch int
}

func NewStepLR(optimizer RateSetter, stepSize int, gamma float64) *StepLR {
	return &StepLR{
		optimizer: optimizer,
		stepSize:  stepSize,
		gamma:     gamma,
	}
}

func (s *StepLR) Step(float64) {
	s.lastEpoch++
	if s.stepSize > 0 && s.lastEpoch%s.stepSize == 0 {
		s.optimizer.SetLR(s.optimizer.LR() * s.gamma)
	}
}

func (s *StepLR) LR() float64 {
	return s.optimizer.LR()
}

// ReduceLROnPlateau multiplies the learning rate by factor once the
// validation loss has failed to improve by more than threshold for patience
// epochs, never going below minLR.
type ReduceLROnPlateau struct {
	optimizer RateSetter
	factor    float64
	patience  int
	threshold float64
	minLR     float64

	bestLoss     float64
	numBadEpochs int
}

func NewReduceLROnPlateau(optimizer RateSetter, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		optimizer: optimizer,
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		bestLoss:  math.Inf(1),
	}
}

func (s *ReduceLROnPlateau) Step(validLoss float64) {
	if validLoss < s.bestLoss-s.threshold {
		s.bestLoss = validLoss
		s.numBadEpochs = 0
		return
	}

	s.numBadEpochs++
	if s.numBadEpochs >= s.patience {
		s.optimizer.SetLR(math.Max(s.optimizer.LR()*s.factor, s.minLR))
		s.numBadEpochs = 0
	}
}

func (s *ReduceLROnPlateau) LR() float64 {
	return s.optimizer.LR()
}
