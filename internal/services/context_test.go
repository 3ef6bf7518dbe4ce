package services_test

import (
	"context"
	"testing"

	"compositor/internal/services"
)

func TestJobContextRoundTrip(t *testing.T) {
	ctx := services.WithJob(context.Background(), services.JobContext{ID: 42, Kind: "transcode", CorrelationID: "c0ffee"})
	job, ok := services.JobFromContext(ctx)
	if !ok {
		t.Fatal("expected job context")
	}
	if job.ID != 42 || job.Kind != "transcode" || job.CorrelationID != "c0ffee" {
		t.Fatalf("unexpected job context %+v", job)
	}
}

func TestJobContextAbsentOrEmpty(t *testing.T) {
	if _, ok := services.JobFromContext(context.Background()); ok {
		t.Fatal("background context should carry no job")
	}
	if _, ok := services.JobFromContext(services.WithJob(context.Background(), services.JobContext{})); ok {
		t.Fatal("empty job context should be ignored")
	}
}
