package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gatevision/platewatch/internal/anpr"
	"github.com/gatevision/platewatch/internal/api"
	"github.com/gatevision/platewatch/internal/config"
	"github.com/gatevision/platewatch/internal/replay"
	"github.com/gatevision/platewatch/internal/store"
	"github.com/gatevision/platewatch/internal/vision"
	"github.com/gatevision/platewatch/internal/ws"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	configPath = flag.String("config", "", "Config file (YAML)")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Database path (overrides config)")
	video      = flag.String("video", "", "Video source (overrides config)")
	replayFile = flag.String("replay", "", "Run from a JSONL recording instead of a camera")
	devMode    = flag.Bool("dev", false, "Serve static files from ./static instead of the embedded copy")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if *video != "" {
		cfg.Video.Source = *video
	}

	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	if err := st.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	images, err := vision.NewImageStore(cfg.Storage.ImageDir)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}

	roi, err := anpr.NewROIGate(cfg.ROI.IntersectionThreshold, cfg.ROI.Path)
	if err != nil {
		log.Fatalf("Failed to load ROI: %v", err)
	}

	registry := anpr.NewRegistry(anpr.RegistryConfig{
		PositionThreshold:  cfg.Tracking.PositionThreshold,
		MaxAttempts:        cfg.Recognition.MaxAttempts,
		LockThreshold:      cfg.Recognition.LockThreshold,
		SaveThreshold:      cfg.Recognition.SaveThreshold,
		MinTrackConfidence: cfg.Tracking.MinTrackConfidence,
		MaxTrackAge:        cfg.Tracking.MaxTrackAge(),
		LockedGrace:        cfg.Tracking.LockedGrace(),
	}, nil)

	hub := ws.NewHub()
	defer hub.Close()
	publisher := vision.NewPublisher(vision.NewAnnotator(roi))

	pipelineConfig := anpr.PipelineConfig{
		FrameSkip:           cfg.Video.FrameSkip,
		DetectionConfidence: cfg.Detection.ConfidenceThreshold,
		NMSThreshold:        cfg.Detection.NMSThreshold,
		CropPadding:         cfg.Recognition.CropPadding,
		RecognitionWorkers:  cfg.Recognition.Workers,
		MinPlateLength:      cfg.Recognition.MinPlateLength,
		MaxPlateLength:      cfg.Recognition.MaxPlateLength,
		EvictionInterval:    cfg.Tracking.EvictionInterval(),
	}
	opts := anpr.PipelineOptions{
		Committer:   st,
		Broadcaster: hub,
		Images:      images,
		Sink:        publisher,
	}

	// Assemble the frame source and engines: a recorded session for
	// offline runs, camera plus NPU models otherwise.
	var (
		source   anpr.FrameSource
		pipeline *anpr.Pipeline
	)
	if *replayFile != "" {
		rec, err := replay.Load(*replayFile)
		if err != nil {
			log.Fatalf("Failed to load recording: %v", err)
		}
		log.Printf("Replaying %d recorded frames", rec.FrameCount())
		source = rec
		pipeline = anpr.NewPipeline(pipelineConfig, registry, roi,
			rec.Detector(), rec.EngineA(), rec.EngineB(), opts)
	} else {
		detector, err := vision.NewYOLODetector(cfg.Models.Detector)
		if err != nil {
			log.Fatalf("Failed to load detector: %v", err)
		}
		defer detector.Close()

		lprnet, err := vision.NewLPRNetRecognizer(cfg.Models.LPRNet)
		if err != nil {
			log.Fatalf("Failed to load LPRNet: %v", err)
		}
		defer lprnet.Close()

		ocr, err := vision.NewPPOCRRecognizer(cfg.Models.OCR, cfg.Models.OCRKeys)
		if err != nil {
			log.Fatalf("Failed to load OCR: %v", err)
		}
		defer ocr.Close()

		capture, err := vision.OpenCapture(cfg.Video.Source)
		if err != nil {
			log.Fatalf("Failed to open video source: %v", err)
		}
		defer capture.Close()

		source = capture
		pipeline = anpr.NewPipeline(pipelineConfig, registry, roi,
			detector, lprnet, ocr, opts)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pipeline goroutine: consumes frames until the source ends or we
	// get a shutdown signal.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx, source); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Print("pipeline routine terminated")
		stop()
	}()

	// HTTP server goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiServer := api.NewServer(st, roi, registry, hub, publisher, images)
		apiMux := apiServer.ServeMux()

		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			sub, err := fs.Sub(staticFiles, "static")
			if err != nil {
				log.Fatalf("failed to mount static files: %v", err)
			}
			staticHandler = http.FileServer(http.FS(sub))
		}

		mux.Handle("/", staticHandler)
		mux.Handle("/api/", apiMux)
		mux.Handle("/ws", apiMux)
		mux.Handle("/healthz", apiMux)
		mux.Handle("/metrics", apiMux)

		server := &http.Server{
			Addr:    cfg.Server.Listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", cfg.Server.Listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
