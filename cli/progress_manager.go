package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"go.viam.com/depthmesh/pipeline"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(w io.Writer, text string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(w io.Writer, text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a progress step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error.
	StepFailed
)

// Step is one pipeline stage as shown to the user.
type Step struct {
	Stage   pipeline.Stage
	Message string
	Status  StepStatus
	Took    time.Duration
}

// ProgressManager shows a spinner per pipeline stage. It implements
// pipeline.Observer.
type ProgressManager struct {
	out            io.Writer
	steps          []*Step
	stepMap        map[pipeline.Stage]*Step
	currentSpinner progressSpinner
	spinnerFactory progressSpinnerFactory
	mu             sync.Mutex
	disabled       bool
}

var _ pipeline.Observer = (*ProgressManager)(nil)

// ProgressManagerOption allows customizing ProgressManager behavior at creation time.
type ProgressManagerOption func(*ProgressManager)

// WithProgressOutput enables or disables terminal output for a ProgressManager.
func WithProgressOutput(enabled bool) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.disabled = !enabled
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.spinnerFactory = factory
	}
}

var stageMessages = map[pipeline.Stage]string{
	pipeline.StageRead:       "Reading input",
	pipeline.StageEstimate:   "Estimating depth",
	pipeline.StagePointCloud: "Building point cloud",
	pipeline.StageHull:       "Computing convex hull",
	pipeline.StageExport:     "Exporting",
}

// NewProgressManager returns a ProgressManager for stages writing to out.
func NewProgressManager(out io.Writer, stages []pipeline.Stage, opts ...ProgressManagerOption) *ProgressManager {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	pm := &ProgressManager{
		out:            out,
		stepMap:        make(map[pipeline.Stage]*Step, len(stages)),
		spinnerFactory: defaultSpinnerFactory,
	}
	for _, stage := range stages {
		msg, ok := stageMessages[stage]
		if !ok {
			msg = string(stage)
		}
		step := &Step{Stage: stage, Message: msg}
		pm.steps = append(pm.steps, step)
		pm.stepMap[stage] = step
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

// trackedSteps returns the tracked steps in order.
func (pm *ProgressManager) trackedSteps() []*Step {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.steps
}

// StageStarted starts a spinner for stage.
func (pm *ProgressManager) StageStarted(stage pipeline.Stage) {
	if err := pm.start(stage); err != nil {
		warningf(pm.out, "%v", err)
	}
}

// StageFinished stops the stage's spinner with a success or failure mark.
func (pm *ProgressManager) StageFinished(stage pipeline.Stage, took time.Duration, err error) {
	if err == nil {
		pm.complete(stage, took)
		return
	}
	pm.fail(stage, err)
}

func (pm *ProgressManager) start(stage pipeline.Stage) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stage]
	if !exists {
		return errors.Errorf("stage %q not tracked", stage)
	}
	step.Status = StepRunning
	if pm.disabled {
		return nil
	}
	if pm.currentSpinner != nil {
		_ = pm.currentSpinner.Stop() //nolint:errcheck
	}
	spinner, err := pm.spinnerFactory(pm.out, step.Message)
	if err != nil {
		return errors.Wrap(err, "failed to start spinner")
	}
	pm.currentSpinner = spinner
	return nil
}

func (pm *ProgressManager) complete(stage pipeline.Stage, took time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stage]
	if !exists {
		return
	}
	step.Status = StepCompleted
	step.Took = took
	if pm.disabled {
		return
	}
	msg := fmt.Sprintf("%s (%s)", step.Message, took.Round(time.Millisecond))
	if pm.currentSpinner != nil {
		pm.currentSpinner.Success(msg)
		pm.currentSpinner = nil
		return
	}
	pterm.Success.WithWriter(pm.out).Println(msg)
}

func (pm *ProgressManager) fail(stage pipeline.Stage, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, exists := pm.stepMap[stage]
	if !exists {
		return
	}
	step.Status = StepFailed
	if pm.disabled {
		return
	}
	msg := fmt.Sprintf("%s: %v", step.Message, err)
	if pm.currentSpinner != nil {
		pm.currentSpinner.Fail(msg)
		pm.currentSpinner = nil
		return
	}
	pterm.Error.WithWriter(pm.out).Println(msg)
}

// Stop stops any active spinner.
func (pm *ProgressManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.currentSpinner != nil {
		_ = pm.currentSpinner.Stop() //nolint:errcheck
		pm.currentSpinner = nil
	}
}
