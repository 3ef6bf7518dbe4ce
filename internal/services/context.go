package services

import "context"

type jobContextKey struct{}

// JobContext identifies the orchestrated job a piece of work belongs to.
type JobContext struct {
	ID            int64
	Kind          string
	CorrelationID string
}

// WithJob annotates ctx with the job identity. Zero fields are omitted when
// read back.
func WithJob(ctx context.Context, job JobContext) context.Context {
	return context.WithValue(ctx, jobContextKey{}, job)
}

// JobFromContext returns the job identity stored by WithJob.
func JobFromContext(ctx context.Context) (JobContext, bool) {
	if ctx == nil {
		return JobContext{}, false
	}
	job, ok := ctx.Value(jobContextKey{}).(JobContext)
	if !ok || (job.ID == 0 && job.Kind == "" && job.CorrelationID == "") {
		return JobContext{}, false
	}
	return job, true
}
