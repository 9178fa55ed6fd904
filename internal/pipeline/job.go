package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabmine/internal/metrics"
	"github.com/ppiankov/vocabmine/internal/model"
)

// job tracks the stage sequence of one mining run
type job struct {
	result  *model.Result
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	stage   model.Stage
	entered time.Time
	notes   []string
	failed  bool
}

func newJob(logger zerolog.Logger, m *metrics.Metrics, now func() time.Time) *job {
	id := uuid.NewString()
	started := now().UTC()
	return &job{
		result: &model.Result{
			JobID:    id,
			Terms:    []model.MinedTerm{},
			Rejected: []model.Rejection{},
			Stages:   []model.StageRecord{},
			Started:  started,
		},
		logger:  logger.With().Str("job_id", id).Logger(),
		metrics: m,
		now:     now,
	}
}

// enter closes the current stage and starts the next one
func (j *job) enter(stage model.Stage) {
	j.closeStage()
	j.stage = stage
	j.entered = j.now()
	j.logger.Debug().Str("stage", string(stage)).Msg("stage started")
}

// note attaches a degradation note to the current stage
func (j *job) note(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.notes = append(j.notes, msg)
	j.logger.Debug().Str("stage", string(j.stage)).Msg(msg)
}

// fail records a source failure; the job ends as a partial failure
func (j *job) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.failed = true
	j.notes = append(j.notes, msg)
	j.logger.Warn().Str("stage", string(j.stage)).Msg(msg)
}

func (j *job) reject(phrase string, reason model.RejectReason, detail string) {
	j.result.Rejected = append(j.result.Rejected, model.Rejection{
		Phrase: phrase,
		Reason: reason,
		Detail: detail,
	})
	j.metrics.ObserveRejection(string(reason))

	switch reason {
	case model.RejectSafetyBlocked, model.RejectSensitive:
		j.result.Stats.SafetyFiltered++
	case model.RejectLicenseViolation:
		j.result.Stats.LicenseFiltered++
	case model.RejectMissingDefinition, model.RejectMissingExample:
		j.result.Stats.DefinitionMissed++
	}
}

func (j *job) closeStage() {
	if j.stage == "" {
		return
	}
	d := j.now().Sub(j.entered)
	j.result.Stages = append(j.result.Stages, model.StageRecord{
		Stage:    j.stage,
		Duration: d,
		Notes:    j.notes,
	})
	j.metrics.ObserveStage(string(j.stage), d)
	j.stage = ""
	j.notes = nil
}

// finish records the terminal state and returns the result
func (j *job) finish() *model.Result {
	j.closeStage()

	state := model.StageDone
	if j.failed {
		state = model.StagePartialFailure
	}
	j.result.State = state
	j.result.Finished = j.now().UTC()
	j.result.Stats.Emitted = len(j.result.Terms)
	j.result.Stages = append(j.result.Stages, model.StageRecord{Stage: state})
	j.metrics.ObserveJob(string(state), len(j.result.Terms))

	j.logger.Debug().
		Str("state", string(state)).
		Int("terms", len(j.result.Terms)).
		Int("rejected", len(j.result.Rejected)).
		Dur("elapsed", j.result.Finished.Sub(j.result.Started)).
		Msg("job finished")
	return j.result
}
