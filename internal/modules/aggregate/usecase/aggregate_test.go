package usecase_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"beatmark/internal/modules/aggregate/domain"
	"beatmark/internal/modules/aggregate/dto"
	"beatmark/internal/modules/aggregate/service"
	"beatmark/internal/modules/aggregate/usecase"
)

type fakeManifestStore struct {
	manifests []domain.Manifest
}

func (s fakeManifestStore) Load(context.Context) ([]domain.Manifest, error) {
	return s.manifests, nil
}

// describingHost computes results in process, like the descriptives plugin.
type describingHost struct{}

func (describingHost) CheckLifecycle(context.Context, domain.Manifest) error { return nil }
func (describingHost) GetMetadata(context.Context, domain.Manifest) (domain.Metadata, error) {
	return domain.Metadata{Name: "p1", Version: "1", Statistics: domain.Descriptives}, nil
}
func (describingHost) Aggregate(_ context.Context, _ domain.Manifest, req domain.Request) (domain.Result, error) {
	return domain.Describe(req.Samples, req.Statistics), nil
}

func TestUsecaseListDoctorAndAggregate(t *testing.T) {
	t.Parallel()
	manifest := manifestWithBinary(t)
	uc := usecase.NewInteractor(service.NewAggregateService(fakeManifestStore{manifests: []domain.Manifest{manifest}}, describingHost{}, nil))

	list, err := uc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "p1" || list[0].Capabilities[0] != "aggregate" {
		t.Fatalf("unexpected list: %+v", list)
	}

	docs, err := uc.Doctor(context.Background())
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if len(docs) != 1 || !docs[0].LifecycleOK {
		t.Fatalf("unexpected doctor result: %+v", docs)
	}

	out, err := uc.Aggregate(context.Background(), dto.AggregateInput{
		Plugin: "p1",
		Rows: []dto.RowInput{
			{MarkerID: 2, Time: 1.0, Epoch: "rest", IBI: 1.0},
			{MarkerID: 3, Time: 2.0, Epoch: "rest", IBI: 1.0},
			{MarkerID: 3, Time: 2.0, Epoch: "task", IBI: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.Epochs["rest"]["n"] != 2 || out.Epochs["task"]["n"] != 1 || out.Epochs["rest"]["rmssd"] != 0 {
		t.Fatalf("unexpected aggregate output: %+v", out.Epochs)
	}
}

func manifestWithBinary(t *testing.T) domain.Manifest {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "plugin-bin")
	if err := os.WriteFile(binPath, []byte("binary"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	hash := sha256.Sum256([]byte("binary"))
	return domain.Manifest{
		Name:         "p1",
		Version:      "1",
		Binary:       binPath,
		SHA256:       hex.EncodeToString(hash[:]),
		Enabled:      true,
		Capabilities: []domain.Capability{domain.CapabilityAggregate},
	}
}
