package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	aggregateout "beatmark/internal/modules/aggregate/adapter/out"
	"beatmark/internal/modules/aggregate/domain"
	"beatmark/internal/modules/aggregate/dto"
	"beatmark/internal/modules/aggregate/service"
)

type fakeStore struct {
	manifests []domain.Manifest
}

func (s fakeStore) Load(context.Context) ([]domain.Manifest, error) {
	return s.manifests, nil
}

type fakeHost struct {
	name   string
	result domain.Result
	got    domain.Request
}

func (*fakeHost) CheckLifecycle(context.Context, domain.Manifest) error { return nil }
func (h *fakeHost) GetMetadata(context.Context, domain.Manifest) (domain.Metadata, error) {
	return domain.Metadata{Name: h.name, Version: "1", Statistics: []string{"n", "mean"}}, nil
}
func (h *fakeHost) Aggregate(_ context.Context, _ domain.Manifest, req domain.Request) (domain.Result, error) {
	h.got = req
	return h.result, nil
}

func TestDoctorDetectsChecksumMismatch(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	pluginsDir := filepath.Join(tmp, "plugins")
	if err := os.MkdirAll(pluginsDir, 0o755); err != nil {
		t.Fatalf("mkdir plugins: %v", err)
	}
	binPath := filepath.Join(tmp, "dummy-plugin")
	if err := os.WriteFile(binPath, []byte("not-a-real-plugin"), 0o755); err != nil {
		t.Fatalf("write plugin binary: %v", err)
	}
	manifests := []domain.Manifest{{
		Name:         "demo",
		Version:      "1.0.0",
		Binary:       binPath,
		SHA256:       strings.Repeat("0", 64),
		Enabled:      true,
		Capabilities: []domain.Capability{domain.CapabilityAggregate},
	}}
	raw, _ := json.Marshal(manifests)
	if err := os.WriteFile(filepath.Join(pluginsDir, "plugins.json"), raw, 0o644); err != nil {
		t.Fatalf("write plugins.json: %v", err)
	}

	svc := service.NewAggregateService(aggregateout.NewFileManifestStore(tmp), nil, nil)
	results, err := svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].ChecksumValid || results[0].Error != "checksum mismatch" {
		t.Fatalf("expected checksum mismatch, got %+v", results[0])
	}
}

func TestDoctorReportsMetadata(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, true)
	svc := service.NewAggregateService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{name: "demo"}, nil)
	results, err := svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if !results[0].LifecycleOK || len(results[0].Statistics) != 2 {
		t.Fatalf("unexpected doctor result: %+v", results[0])
	}

	svc = service.NewAggregateService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{name: "other"}, nil)
	results, err = svc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if results[0].LifecycleOK || results[0].Error == "" {
		t.Fatalf("name mismatch must fail the check, got %+v", results[0])
	}
}

func TestAggregateRejectsDisabledAndUnknownPlugins(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, false)
	svc := service.NewAggregateService(fakeStore{manifests: []domain.Manifest{manifest}}, &fakeHost{name: "demo"}, nil)
	if _, err := svc.Aggregate(context.Background(), dto.AggregateInput{Plugin: "demo"}); !errors.Is(err, domain.ErrPluginDisabled) {
		t.Fatalf("expected ErrPluginDisabled, got %v", err)
	}
	if _, err := svc.Aggregate(context.Background(), dto.AggregateInput{Plugin: "missing"}); !errors.Is(err, domain.ErrPluginNotFound) {
		t.Fatalf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestAggregatePassesRowsAndValidatesResult(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t, true)
	host := &fakeHost{name: "demo", result: domain.Result{"rest": {"n": 2, "mean": 0.9}}}
	svc := service.NewAggregateService(fakeStore{manifests: []domain.Manifest{manifest}}, host, nil)

	out, err := svc.Aggregate(context.Background(), dto.AggregateInput{
		Plugin:     "demo",
		Rows:       []dto.RowInput{{MarkerID: 2, Time: 1, Epoch: "rest", IBI: 0.8}, {MarkerID: 3, Time: 2, Epoch: "rest", IBI: 1.0}},
		Statistics: []string{"n", "mean"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.Plugin != "demo" || out.Epochs["rest"]["mean"] != 0.9 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(host.got.Samples) != 2 || host.got.Samples[1].MarkerID != 3 || len(host.got.Statistics) != 2 {
		t.Fatalf("unexpected request: %+v", host.got)
	}

	if _, err := svc.Aggregate(context.Background(), dto.AggregateInput{Plugin: "demo", Rows: []dto.RowInput{{MarkerID: 2}}}); err == nil {
		t.Fatalf("expected error for row without epoch")
	}
}

func manifestWithBinary(t *testing.T, enabled bool) domain.Manifest {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "plugin-bin")
	if err := os.WriteFile(binPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	hash := sha256.Sum256([]byte("binary"))
	return domain.Manifest{
		Name:         "demo",
		Version:      "1.0.0",
		Binary:       binPath,
		SHA256:       hex.EncodeToString(hash[:]),
		Enabled:      enabled,
		Capabilities: []domain.Capability{domain.CapabilityAggregate},
	}
}
