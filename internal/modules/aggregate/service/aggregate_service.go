package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	hclog "github.com/hashicorp/go-hclog"

	"beatmark/internal/modules/aggregate/domain"
	"beatmark/internal/modules/aggregate/dto"
	aggregateout "beatmark/internal/modules/aggregate/port/out"
	"beatmark/internal/platform/logging"
)

type AggregateService struct {
	store  aggregateout.ManifestStore
	host   aggregateout.Host
	logger hclog.Logger
}

func NewAggregateService(store aggregateout.ManifestStore, host aggregateout.Host, logger hclog.Logger) *AggregateService {
	return &AggregateService{store: store, host: host, logger: logging.OrNull(logger).Named("aggregate")}
}

func (s *AggregateService) List(ctx context.Context) ([]dto.PluginInfo, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PluginInfo, 0, len(manifests))
	for _, m := range manifests {
		caps := make([]string, 0, len(m.Capabilities))
		for _, c := range m.Capabilities {
			caps = append(caps, string(c))
		}
		out = append(out, dto.PluginInfo{Name: m.Name, Version: m.Version, Enabled: m.Enabled, Binary: m.Binary, Capabilities: caps})
	}
	return out, nil
}

func (s *AggregateService) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]dto.DoctorResult, 0, len(manifests))
	for _, m := range manifests {
		result := dto.DoctorResult{Name: m.Name}
		if err := m.Validate(); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		binaryOK := fileExists(m.Binary)
		result.BinaryReachable = binaryOK
		checksumOK := false
		if binaryOK {
			checksumOK = checksumMatches(m.Binary, m.SHA256) == nil
		}
		result.ChecksumValid = checksumOK
		if binaryOK && checksumOK && m.Enabled && s.host != nil {
			meta, err := s.host.GetMetadata(ctx, m)
			switch {
			case err != nil:
				result.Error = err.Error()
			case meta.Name != m.Name:
				result.Error = fmt.Sprintf("plugin reports name %q", meta.Name)
			default:
				result.LifecycleOK = true
				result.Statistics = meta.Statistics
			}
		}
		if !binaryOK {
			result.Error = fmt.Sprintf("binary does not exist: %s", m.Binary)
		}
		if binaryOK && !checksumOK {
			result.Error = "checksum mismatch"
		}
		s.logger.Debug("plugin checked", "plugin", m.Name, "lifecycle_ok", result.LifecycleOK, "error", result.Error)
		results = append(results, result)
	}
	return results, nil
}

// Aggregate ships the rows to the named plugin and returns its per-epoch
// statistics.
func (s *AggregateService) Aggregate(ctx context.Context, input dto.AggregateInput) (dto.AggregateOutput, error) {
	manifest, err := s.getRunnableManifest(ctx, input.Plugin, domain.CapabilityAggregate)
	if err != nil {
		return dto.AggregateOutput{}, err
	}
	req := domain.Request{Samples: make([]domain.Sample, 0, len(input.Rows)), Statistics: input.Statistics}
	for _, r := range input.Rows {
		req.Samples = append(req.Samples, domain.Sample{MarkerID: r.MarkerID, Time: r.Time, Label: r.Label, Epoch: r.Epoch, IBI: r.IBI})
	}
	if err := req.Validate(); err != nil {
		return dto.AggregateOutput{}, err
	}

	result, err := s.host.Aggregate(ctx, manifest, req)
	if err != nil {
		return dto.AggregateOutput{}, err
	}
	if err := result.Validate(); err != nil {
		return dto.AggregateOutput{}, err
	}
	s.logger.Info("aggregated", "plugin", manifest.Name, "rows", len(req.Samples), "epochs", len(result))
	return dto.AggregateOutput{Plugin: manifest.Name, Epochs: result}, nil
}

func (s *AggregateService) loadValidated(ctx context.Context) ([]domain.Manifest, error) {
	manifests, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seenNames := map[string]struct{}{}
	for _, manifest := range manifests {
		if err := manifest.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seenNames[manifest.Name]; ok {
			return nil, fmt.Errorf("duplicate plugin name: %s", manifest.Name)
		}
		seenNames[manifest.Name] = struct{}{}
	}
	return manifests, nil
}

func (s *AggregateService) getRunnableManifest(ctx context.Context, pluginName string, requiredCapability domain.Capability) (domain.Manifest, error) {
	manifests, err := s.loadValidated(ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	manifest := domain.Manifest{}
	found := false
	for _, item := range manifests {
		if item.Name == pluginName {
			manifest = item
			found = true
			break
		}
	}
	if !found {
		return domain.Manifest{}, fmt.Errorf("%w: %q", domain.ErrPluginNotFound, pluginName)
	}
	if !manifest.Enabled {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginDisabled, pluginName)
	}
	if requiredCapability != "" && !manifest.HasCapability(requiredCapability) {
		return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrCapabilityMissing, requiredCapability)
	}
	if err := checksumMatches(manifest.Binary, manifest.SHA256); err != nil {
		return domain.Manifest{}, err
	}
	if s.host == nil {
		return domain.Manifest{}, fmt.Errorf("no plugin host configured")
	}
	if err := s.host.CheckLifecycle(ctx, manifest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Manifest{}, fmt.Errorf("%w: %s", domain.ErrPluginTimeout, pluginName)
		}
		return domain.Manifest{}, err
	}
	return manifest, nil
}

func checksumMatches(path string, expected string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin binary: %w", err)
	}
	hash := sha256.Sum256(payload)
	actual := hex.EncodeToString(hash[:])
	if actual != expected {
		return fmt.Errorf("%w: %s", domain.ErrChecksumMismatch, filepath.Base(path))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
