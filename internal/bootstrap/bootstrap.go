package bootstrap

import (
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"

	aggregateinadapter "beatmark/internal/modules/aggregate/adapter/in"
	aggregateoutadapter "beatmark/internal/modules/aggregate/adapter/out"
	aggregateservice "beatmark/internal/modules/aggregate/service"
	aggregateusecase "beatmark/internal/modules/aggregate/usecase"
	editor "beatmark/internal/modules/editor/domain"
	marker "beatmark/internal/modules/marker/domain"
	sessioninadapter "beatmark/internal/modules/session/adapter/in"
	sessionoutadapter "beatmark/internal/modules/session/adapter/out"
	sessionservice "beatmark/internal/modules/session/service"
	sessionusecase "beatmark/internal/modules/session/usecase"
	"beatmark/internal/platform/clock"
	"beatmark/internal/platform/config"
	"beatmark/internal/platform/id"
	"beatmark/internal/platform/logging"
	uiapp "beatmark/internal/ui/app"
)

type App struct {
	SessionCLI   sessioninadapter.CLIHandler
	SessionTUI   sessioninadapter.TUIHandler
	AggregateCLI aggregateinadapter.CLIHandler
	Logger       hclog.Logger

	closers []io.Closer
}

func New(cfg config.Config) (*App, error) {
	logger, logCloser, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("new logger: %w", err)
	}
	clk := clock.SystemClock{}
	ids := id.UUID{}

	markerStore, err := sessionoutadapter.NewSQLiteMarkerStore(cfg.DBPath)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("new marker store: %w", err)
	}

	aggregateUC := aggregateusecase.NewInteractor(aggregateservice.NewAggregateService(
		aggregateoutadapter.NewFileManifestStore(cfg.DataDir),
		aggregateoutadapter.NewGRPCHost(logger),
		logger,
	))

	markerLog := logger.Named("markers")
	sessionSvc := sessionservice.NewSessionService(clk, ids, logger, sessionservice.Options{
		Editor: editor.Options{
			DefaultLabel: marker.Label(cfg.Editor.DefaultLabel),
			LocatedLabel: marker.Label(cfg.Editor.LocatedLabel),
			Tolerance: editor.Tolerance{
				Seconds: cfg.Editor.ToleranceSeconds,
				Pixels:  cfg.Editor.TolerancePixels,
			},
		},
		InitialWidth:  cfg.View.InitialWidth,
		ZoomFactor:    cfg.View.ZoomFactor,
		NavigateLabel: marker.Label(cfg.View.NavigateLabel),
	}, editor.Callbacks{
		OnAdded: func(markerID int64, t float64) {
			markerLog.Debug("marker added", "id", markerID, "time", t)
		},
		OnRemoved: func(markerID int64) {
			markerLog.Debug("marker removed", "id", markerID)
		},
		OnDragged: func(markerID int64, oldTime, newTime float64) {
			markerLog.Debug("marker dragged", "id", markerID, "from", oldTime, "to", newTime)
		},
	})
	sessionUC := sessionusecase.NewInteractor(
		sessionSvc,
		sessionoutadapter.NewCSVDatasetLoader(),
		markerStore,
		sessionoutadapter.NewNoteSummaryStore(cfg.NotesDir),
		sessionoutadapter.NewAggregatorAdapter(aggregateUC),
		clk,
	)

	return &App{
		SessionCLI:   sessioninadapter.NewCLIHandler(sessionUC),
		SessionTUI:   sessioninadapter.NewTUIHandler(sessionUC),
		AggregateCLI: aggregateinadapter.NewCLIHandler(aggregateUC),
		Logger:       logger,
		closers:      []io.Closer{markerStore, logCloser},
	}, nil
}

// Close releases the marker database and the log file.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func RunTUI(datasetPath string, reset bool, app *App) error {
	model := uiapp.NewModel(datasetPath, reset, app.SessionTUI, app.AggregateCLI)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}
