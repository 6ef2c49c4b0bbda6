// Package main is the entry point for the LacyLights matrix bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-matrix/internal/config"
	"github.com/bbernstein/lacylights-matrix/internal/database"
	"github.com/bbernstein/lacylights-matrix/internal/database/models"
	"github.com/bbernstein/lacylights-matrix/internal/database/repositories"
	"github.com/bbernstein/lacylights-matrix/internal/server"
	"github.com/bbernstein/lacylights-matrix/internal/services/dmx"
	"github.com/bbernstein/lacylights-matrix/internal/services/driver"
	"github.com/bbernstein/lacylights-matrix/internal/services/frameloop"
	"github.com/bbernstein/lacylights-matrix/internal/services/network"
	"github.com/bbernstein/lacylights-matrix/internal/services/pattern"
	"github.com/bbernstein/lacylights-matrix/internal/services/pixel"
	"github.com/bbernstein/lacylights-matrix/internal/services/pubsub"
	"github.com/bbernstein/lacylights-matrix/internal/services/source"
	"github.com/bbernstein/lacylights-matrix/internal/services/version"
)

// Process exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitDriver       = -1
	exitSocketCreate = -2
	exitBind         = -3
	exitConfig       = -4
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("❌ %v", err)
		return exitConfig
	}

	printBanner(cfg)

	order, _ := pixel.ParseChannelOrder(cfg.ChannelOrder)
	drv, err := driver.Open(driver.Config{
		Kind:         cfg.Driver,
		LEDCount:     cfg.PixelCount(),
		ChannelOrder: order,
		Brightness:   cfg.Brightness,
		SerialPort:   cfg.SerialPort,
		BaudRate:     cfg.SerialBaudRate,
	})
	if err != nil {
		log.Printf("❌ Driver init failed: %v", err)
		return exitDriver
	}

	src, err := openSource(cfg)
	if err != nil {
		log.Printf("❌ Frame source failed: %v", err)
		_ = drv.Shutdown()
		return exitCode(err)
	}

	ps := pubsub.New()
	ctrl, err := frameloop.New(frameloop.Config{
		Width:         cfg.Width,
		Height:        cfg.Height,
		FrameInterval: cfg.FrameInterval(),
		FrameTimeout:  cfg.FrameTimeout,
		TimeoutPolicy: frameloop.TimeoutPolicy(cfg.FrameTimeoutPolicy),
		ClearOnExit:   cfg.ClearOnExit,
	}, src, drv, ps)
	if err != nil {
		log.Printf("❌ %v", err)
		_ = src.Close()
		_ = drv.Shutdown()
		return exitConfig
	}

	history := openHistory(cfg, src.Name())
	defer history.close()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The status API goes down with the loop.
		defer cancel()
		return ctrl.Run(gctx)
	})
	if cfg.HTTPEnabled {
		var runs server.RunLister
		if history.repo != nil {
			runs = history.repo
		}
		srv := server.New(server.Config{
			Port:           cfg.Port,
			CORSOrigin:     cfg.CORSOrigin,
			Debug:          cfg.IsDevelopment(),
			Version:        version.Version,
			ArtNetBindAddr: cfg.ArtNetBindAddr,
			ArtNetPort:     cfg.ArtNetPort,
		}, ctrl, runs, ps)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	runErr := g.Wait()
	history.finish(ctrl.Status(), runErr)

	code := exitCode(runErr)
	if code == exitOK {
		log.Println("Matrix bridge stopped")
	} else {
		log.Printf("❌ Matrix bridge stopped: %v", runErr)
	}
	return code
}

// openSource creates the configured frame source.
func openSource(cfg *config.Config) (source.FrameSource, error) {
	assembler := dmx.Config{
		UniverseCount:     cfg.UniverseCount(),
		PixelsPerUniverse: cfg.PixelsPerUniverse,
		Strict:            cfg.ArtNetStrict,
	}

	switch cfg.FrameSource {
	case config.SourceSimulation:
		p, err := pattern.New(cfg.SimulationPattern)
		if err != nil {
			return nil, err
		}
		log.Printf("🧪 Simulation mode: %s pattern", p.Name())
		return source.NewSimulation(p, cfg.Width, cfg.Height), nil
	case config.SourcePcap:
		return source.OpenPcap(source.PcapConfig{
			Path:      cfg.PcapFile,
			Port:      cfg.ArtNetPort,
			Loop:      cfg.PcapLoop,
			Assembler: assembler,
		})
	default:
		src, err := source.ListenArtNet(source.ArtNetConfig{
			BindAddr:      cfg.ArtNetBindAddr,
			Port:          cfg.ArtNetPort,
			MaxPacketSize: cfg.ArtNetMaxPacketSize,
			Assembler:     assembler,
		})
		if err != nil {
			return nil, err
		}
		logListenAddresses(cfg)
		return src, nil
	}
}

func logListenAddresses(cfg *config.Config) {
	options, err := network.ListenInterfaces(cfg.ArtNetBindAddr, cfg.ArtNetPort)
	if err != nil {
		log.Printf("⚠️  %v", err)
		return
	}
	for _, o := range options {
		log.Printf("   %s", o.Description)
	}
}

// exitCode maps a run error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, frameloop.ErrRender):
		return exitDriver
	case errors.Is(err, source.ErrSocketCreate):
		return exitSocketCreate
	case errors.Is(err, source.ErrBind):
		return exitBind
	default:
		return exitFailure
	}
}

// runHistory records this run when a database is configured. A nil repo
// means history is off.
type runHistory struct {
	db   *gorm.DB
	repo *repositories.RunRepository
	id   string
}

func openHistory(cfg *config.Config, sourceName string) *runHistory {
	h := &runHistory{}
	if cfg.DatabaseURL == "" {
		return h
	}

	db, err := database.Connect(database.Config{
		URL:         cfg.DatabaseURL,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
		Debug:       cfg.IsDevelopment(),
	})
	if err != nil {
		log.Printf("⚠️  Run history disabled: %v", err)
		return h
	}

	repo := repositories.NewRunRepository(db)
	rec := &models.RunRecord{
		Width:             cfg.Width,
		Height:            cfg.Height,
		UniverseCount:     cfg.UniverseCount(),
		PixelsPerUniverse: cfg.PixelsPerUniverse,
		FPS:               cfg.FPS,
		Source:            sourceName,
		Driver:            cfg.Driver,
		ChannelOrder:      cfg.ChannelOrder,
	}
	h.db, h.repo = db, repo
	if err := repo.Create(context.Background(), rec); err != nil {
		log.Printf("⚠️  Failed to record run: %v", err)
		return h
	}
	h.id = rec.ID
	return h
}

func (h *runHistory) finish(st frameloop.Status, runErr error) {
	if h.repo == nil || h.id == "" {
		return
	}

	stats := repositories.RunStats{
		FramesRendered: st.FramesRendered,
		Timeouts:       st.Timeouts,
	}
	if st.Packets != nil {
		stats.PacketsAccepted = st.Packets.Accepted
		stats.PacketsRejected = st.Packets.Rejected
		stats.Duplicates = st.Packets.Duplicates
	}

	if err := h.repo.Finish(context.Background(), h.id, exitReason(runErr), stats, runErr); err != nil {
		log.Printf("⚠️  Failed to finish run record: %v", err)
	}
}

func (h *runHistory) close() {
	if h.db != nil {
		_ = database.Close(h.db)
	}
}

func exitReason(err error) string {
	switch {
	case err == nil:
		return models.ExitShutdown
	case errors.Is(err, frameloop.ErrRender):
		return models.ExitRenderFailed
	default:
		return models.ExitSourceFailed
	}
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println("============================================")
	fmt.Println("  LacyLights Matrix Bridge")
	info := version.Get()
	fmt.Printf("  Version: %s\n", info.Version)
	fmt.Printf("  Build:   %s\n", info.BuildTime)
	fmt.Printf("  Commit:  %s\n", info.GitCommit)
	fmt.Println("============================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Matrix:      %dx%d (%d universes x %d pixels)\n", cfg.Width, cfg.Height, cfg.UniverseCount(), cfg.PixelsPerUniverse)
	fmt.Printf("  Frame rate:  %d fps (%s)\n", cfg.FPS, cfg.RateMode)
	fmt.Printf("  Source:      %s\n", cfg.FrameSource)
	fmt.Printf("  Driver:      %s, order %s, brightness %d\n", cfg.Driver, cfg.ChannelOrder, cfg.Brightness)
	if cfg.HTTPEnabled {
		fmt.Printf("  Status API:  http://localhost:%s\n", cfg.Port)
	}
	if cfg.DatabaseURL != "" {
		fmt.Printf("  Database:    %s\n", cfg.DatabaseURL)
	}
	fmt.Println("============================================")
}
