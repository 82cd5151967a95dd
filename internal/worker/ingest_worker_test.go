package worker

import (
	"context"
	"errors"
	"testing"

	"docassist/internal/model"
)

type recordingProcessor struct {
	jobs []model.IngestJob
	err  error
}

func (p *recordingProcessor) Process(_ context.Context, job model.IngestJob) error {
	p.jobs = append(p.jobs, job)
	return p.err
}

func TestIngestWorker_Handle(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewIngestWorker(nil, proc, "docassist.ingest", nil)

	body := []byte(`{"id":"job-1","files":[{"name":"a.pdf","path":"/tmp/a.pdf"}]}`)
	if err := w.handle(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(proc.jobs) != 1 || proc.jobs[0].ID != "job-1" || proc.jobs[0].Files[0].Name != "a.pdf" {
		t.Errorf("processed = %+v", proc.jobs)
	}
}

func TestIngestWorker_HandleErrors(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("upload failed")}
	w := NewIngestWorker(nil, proc, "docassist.ingest", nil)

	if err := w.handle(context.Background(), []byte("{broken")); err == nil {
		t.Error("expected decode error")
	}
	if len(proc.jobs) != 0 {
		t.Errorf("processor called for undecodable body")
	}
	if err := w.handle(context.Background(), []byte(`{"id":"job-2"}`)); err == nil {
		t.Error("expected processing error")
	}
}

func TestIngestWorker_CloseWithoutStart(t *testing.T) {
	w := NewIngestWorker(nil, &recordingProcessor{}, "q", nil)
	w.Close()
}
