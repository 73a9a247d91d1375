package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	sessionout "beatmark/internal/modules/session/adapter/out"
	apperrors "beatmark/internal/platform/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCSVDatasetLoaderReadsDirectory(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "Subject 01")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, sessionout.PrimaryFile), "time,value\n0,0.1\n0.5,0.9\n1,0.2\n1.5,1.1\n2,0.3\n")
	writeFile(t, filepath.Join(dir, sessionout.SecondaryFile), "0,10\n1,11\n2,12\n")
	writeFile(t, filepath.Join(dir, sessionout.EventsFile), "time,text\n# comment\n0,start rest\n1.5,\"end rest\"\n")
	writeFile(t, filepath.Join(dir, sessionout.MarkersFile), "time,label\n0.5,N\n1.5,\n")

	ds, err := sessionout.NewCSVDatasetLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Key != "subject-01" || ds.Name != "Subject 01" {
		t.Fatalf("unexpected identity: key=%q name=%q", ds.Key, ds.Name)
	}
	if ds.Primary.Len() != 5 || ds.Primary.Rate != 2 || ds.Primary.Values[3] != 1.1 {
		t.Fatalf("unexpected primary: %+v", ds.Primary)
	}
	if ds.Secondary == nil || ds.Secondary.Len() != 3 {
		t.Fatalf("expected secondary channel, got %+v", ds.Secondary)
	}
	if len(ds.Events) != 2 || ds.Events[1].Text != "end rest" {
		t.Fatalf("unexpected events: %+v", ds.Events)
	}
	if len(ds.Markers) != 2 || ds.Markers[1].Label != "N" {
		t.Fatalf("unexpected markers: %+v", ds.Markers)
	}
	if err := ds.Validate(); err != nil {
		t.Fatalf("loaded dataset must validate: %v", err)
	}
}

func TestCSVDatasetLoaderOptionalFilesAndErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, sessionout.PrimaryFile), "0,1\n1,2\n")
	ds, err := sessionout.NewCSVDatasetLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Secondary != nil || ds.Events != nil || ds.Markers != nil {
		t.Fatalf("missing optional files must stay empty: %+v", ds)
	}

	if _, err := sessionout.NewCSVDatasetLoader().Load(context.Background(), filepath.Join(dir, "nope")); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := t.TempDir()
	writeFile(t, filepath.Join(bad, sessionout.PrimaryFile), "0,1\nx,2\n")
	if _, err := sessionout.NewCSVDatasetLoader().Load(context.Background(), bad); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a bad number, got %v", err)
	}
}

func TestCSVDatasetLoaderReadsSingleFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "ecg.csv")
	writeFile(t, path, "0,1\n0.25,2\n0.5,3\n")
	ds, err := sessionout.NewCSVDatasetLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Key != "ecg" || ds.Primary.Rate != 4 {
		t.Fatalf("unexpected dataset: key=%q rate=%g", ds.Key, ds.Primary.Rate)
	}
}
