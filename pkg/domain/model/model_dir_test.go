package model_test

import (
	"testing"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestFindModelDir(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []model.Entry
		wantPath string
		wantOK   bool
	}{
		{
			name: "root is the model directory",
			snapshot: []model.Entry{
				{Path: "fold_0", IsDir: true},
				{Path: "plans.json"},
			},
			wantPath: ".",
			wantOK:   true,
		},
		{
			name: "nested two levels with dataset.json",
			snapshot: []model.Entry{
				{Path: "a", IsDir: true},
				{Path: "a/b", IsDir: true},
				{Path: "a/b/fold_1", IsDir: true},
				{Path: "a/b/dataset.json"},
			},
			wantPath: "a/b",
			wantOK:   true,
		},
		{
			name: "shallowest wins over lexicographic order",
			snapshot: []model.Entry{
				{Path: "a/b/fold_0", IsDir: true},
				{Path: "a/b/plans.json"},
				{Path: "z/fold_0", IsDir: true},
				{Path: "z/plans.json"},
			},
			wantPath: "z",
			wantOK:   true,
		},
		{
			name: "ties broken lexicographically",
			snapshot: []model.Entry{
				{Path: "m2/fold_0", IsDir: true},
				{Path: "m2/plans.json"},
				{Path: "m1/fold_3", IsDir: true},
				{Path: "m1/dataset.json"},
			},
			wantPath: "m1",
			wantOK:   true,
		},
		{
			name: "fold prefix on a file does not count",
			snapshot: []model.Entry{
				{Path: "fold_0"},
				{Path: "plans.json"},
			},
			wantOK: false,
		},
		{
			name: "marker in a different directory does not count",
			snapshot: []model.Entry{
				{Path: "a/fold_0", IsDir: true},
				{Path: "b/plans.json"},
			},
			wantOK: false,
		},
		{
			name:     "empty snapshot",
			snapshot: nil,
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, ok := model.FindModelDir(tt.snapshot)
			gt.Value(t, ok).Equal(tt.wantOK)
			if tt.wantOK {
				gt.Value(t, dir.Path).Equal(tt.wantPath)
			}
		})
	}
}

func TestFindModelDir_CollectsSignature(t *testing.T) {
	dir, ok := model.FindModelDir([]model.Entry{
		{Path: "fold_1", IsDir: true},
		{Path: "fold_0", IsDir: true},
		{Path: "dataset.json"},
		{Path: "plans.json"},
		{Path: "README.md"},
	})
	gt.True(t, ok)
	gt.Value(t, dir.Folds).Equal([]string{"fold_0", "fold_1"})
	gt.Value(t, dir.Markers).Equal([]string{"dataset.json", "plans.json"})
}

func TestResolutionError_ListsEveryAttempt(t *testing.T) {
	var attempts model.ResolutionAttempt
	attempts.Add("https://a.example/1")
	attempts.Add("https://b.example/2")

	err := &model.ResolutionError{FileID: "abc", Attempts: attempts.URLs()}
	gt.String(t, err.Error()).Contains("file id: abc")
	gt.String(t, err.Error()).Contains("- https://a.example/1")
	gt.String(t, err.Error()).Contains("- https://b.example/2")
}

func TestFileRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     model.FileRequest
		wantErr bool
	}{
		{
			name:    "complete request",
			req:     model.FileRequest{FileID: "x", OutputDir: "/tmp/x", FallbackFilename: "x.zip"},
			wantErr: false,
		},
		{
			name:    "missing file id",
			req:     model.FileRequest{OutputDir: "/tmp/x", FallbackFilename: "x.zip"},
			wantErr: true,
		},
		{
			name:    "missing output dir",
			req:     model.FileRequest{FileID: "x", FallbackFilename: "x.zip"},
			wantErr: true,
		},
		{
			name:    "missing fallback filename",
			req:     model.FileRequest{FileID: "x", OutputDir: "/tmp/x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJob_Request(t *testing.T) {
	job := model.Job{
		Label:            "binary",
		FileID:           "id-1",
		Target:           "/data/nnunet/binary",
		FallbackFilename: "binary_model.zip",
	}
	gt.NoError(t, job.Validate())

	req := job.Request("https://a.test/1", "https://b.test/1")
	gt.NoError(t, req.Validate())
	gt.Value(t, req.OutputDir).Equal(job.Target)
	gt.Value(t, req.FallbackFilename).Equal("binary_model.zip")
	gt.Value(t, req.CandidateURLs).Equal([]string{"https://a.test/1", "https://b.test/1"})

	job.Target = ""
	gt.Error(t, job.Validate())
}
